package roster

import (
	"regexp"

	"tejanitos/internal/domain/student"
)

// Row строка ведомости, приведенная к полям записи.
// Raw хранит исходные ячейки для стратегий извлечения ключа.
type Row struct {
	Fields map[string]string
	Raw    []string
}

func NewRow(fields map[string]string) Row {
	return Row{Fields: fields}
}

func (r Row) Get(field string) string {
	return r.Fields[field]
}

// KeyExtractor достает бизнес-ключ из строки. Пустая строка - ключа нет.
type KeyExtractor func(Row) string

// DocumentoColumn ключ из колонки Documento.
func DocumentoColumn(r Row) string {
	return r.Fields[student.FieldDocumento]
}

// DigitRun ищет в ячейках строки первую последовательность не короче minLen цифр
// после нормализации (точки, дефисы и пробелы убираются).
func DigitRun(minLen int) KeyExtractor {
	re := regexp.MustCompile(`^\d+$`)
	return func(r Row) string {
		cells := r.Raw
		if len(cells) == 0 {
			for _, f := range []string{student.FieldDocumento, student.FieldCodigo} {
				cells = append(cells, r.Fields[f])
			}
		}
		for _, c := range cells {
			k := student.NormalizeKey(c)
			if len(k) >= minLen && re.MatchString(k) {
				return c
			}
		}
		return ""
	}
}

// FirstOf применяет стратегии по порядку до первого непустого ключа.
func FirstOf(extractors ...KeyExtractor) KeyExtractor {
	return func(r Row) string {
		for _, ex := range extractors {
			if k := ex(r); student.NormalizeKey(k) != "" {
				return k
			}
		}
		return ""
	}
}
