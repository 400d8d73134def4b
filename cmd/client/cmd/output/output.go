package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"tejanitos/internal/domain/student"
)

// JSON выставляется глобальным флагом --json.
var JSON bool

var out io.Writer = os.Stdout

func Success(format string, args ...any) {
	fmt.Fprintln(out, color.GreenString("✓ "+format, args...))
}

func Warn(format string, args ...any) {
	fmt.Fprintln(out, color.YellowString("⚠ "+format, args...))
}

func Fail(format string, args ...any) {
	fmt.Fprintln(out, color.RedString("✗ "+format, args...))
}

func Title(format string, args ...any) {
	fmt.Fprintln(out, color.New(color.Bold).Sprintf("=== "+format+" ===", args...))
}

// PrintJSON выводит v с отступами.
func PrintJSON(v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Students таблица учеников или JSON при --json.
func Students(list []student.Student) error {
	if JSON {
		return PrintJSON(list)
	}

	if len(list) == 0 {
		fmt.Fprintln(out, "Записи не найдены")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tДокумент\tФИО\tСмена\tСтатус\thexId\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t---\t\n")

	for _, s := range list {
		status := color.GreenString("активен")
		if !s.IsActive() {
			status = color.RedString("выбыл %s", s.Get(student.FieldFechaBaja))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			short(s.ID, 8),
			s.Documento,
			s.Get(student.FieldNombreCompleto),
			s.Get(student.FieldTurno),
			status,
			short(s.HexID, 8),
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nВсего: %d\n", len(list))
	return nil
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
