package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"tejanitos/internal/domain/student"
)

// ExcelEpochOffset серийный номер дня 1970-01-01 в таблицах.
const ExcelEpochOffset = 25569

var ErrUnsupportedFormat = errors.New("unsupported roster file format")

// Columns позиции пяти читаемых колонок, с нуля.
type Columns struct {
	Codigo          int
	NombreCompleto  int
	Sexo            int
	Documento       int
	FechaNacimiento int
}

var DefaultColumns = Columns{
	Codigo:          0,
	NombreCompleto:  1,
	Sexo:            2,
	Documento:       3,
	FechaNacimiento: 4,
}

// Supported true для расширений, которые умеет читать ReadFile.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ReadFile читает ведомость: первая строка - заголовок, дальше данные.
func ReadFile(path string, cols Columns) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	return Read(filepath.Base(path), f, cols)
}

// Read формат определяется по расширению имени.
func Read(name string, r io.Reader, cols Columns) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(r, cols)
	case ".xlsx", ".xlsm":
		return readXLSX(r, cols)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

func readCSV(r io.Reader, cols Columns) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv roster: %w", err)
	}
	return toRows(records, cols), nil
}

func readXLSX(r io.Reader, cols Columns) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx roster: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet %s: %w", sheets[0], err)
	}
	return toRows(records, cols), nil
}

func toRows(records [][]string, cols Columns) []Row {
	if len(records) <= 1 {
		return nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, Row{
			Fields: map[string]string{
				student.FieldCodigo:          cell(rec, cols.Codigo),
				student.FieldNombreCompleto:  cell(rec, cols.NombreCompleto),
				student.FieldSexo:            cell(rec, cols.Sexo),
				student.FieldDocumento:       cell(rec, cols.Documento),
				student.FieldFechaNacimiento: BirthDate(cell(rec, cols.FechaNacimiento)),
			},
			Raw: rec,
		})
	}
	return rows
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// BirthDate переводит серийный номер дня в дату; другие значения возвращает как есть.
func BirthDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil || serial <= 0 {
		return v
	}
	return SerialToDate(serial).Format(student.DateLayout)
}

// SerialToDate дата по серийному номеру дня таблицы.
func SerialToDate(serial float64) time.Time {
	days := int64(serial) - ExcelEpochOffset
	return time.Unix(days*86400, 0).UTC()
}
