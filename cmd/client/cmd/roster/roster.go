package roster

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tejanitos/internal/domain/roster"
	"tejanitos/internal/domain/student"
)

// RosterCmd - родительская команда для работы с ведомостями
var RosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Сверка с ведомостью",
	Long: `Сверка списка учеников с ведомостью в формате CSV или XLSX:
просмотр отличий, применение изменений и наблюдение за папкой входящих.`,
}

// printChangeSet выводит набор изменений в читаемом виде.
func printChangeSet(w io.Writer, cs roster.ChangeSet) {
	bold := color.New(color.Bold)

	bold.Fprintf(w, "Изменены: %d\n", len(cs.Changed))
	for _, ch := range cs.Changed {
		label := ch.Student.Documento
		if ch.Reactivation {
			label += color.GreenString(" (возвращается)")
		}
		fmt.Fprintf(w, "  %s %s\n", label, ch.Student.Get(student.FieldNombreCompleto))

		fields := make([]string, 0, len(ch.Changes))
		for f := range ch.Changes {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			c := ch.Changes[f]
			fmt.Fprintf(w, "    %-18s %s -> %s\n", f, color.RedString("%q", c.OldValue), color.GreenString("%q", c.NewValue))
		}
	}

	bold.Fprintf(w, "Новые: %d\n", len(cs.New))
	for _, s := range cs.New {
		fmt.Fprintf(w, "  %s %s\n", color.GreenString("+ %s", s.Documento), s.Get(student.FieldNombreCompleto))
	}

	bold.Fprintf(w, "Нет в ведомости: %d\n", len(cs.Missing))
	for _, s := range cs.Missing {
		fmt.Fprintf(w, "  %s %s\n", color.RedString("- %s", s.Documento), s.Get(student.FieldNombreCompleto))
	}

	bold.Fprintf(w, "Возвращаются: %d\n", len(cs.Reactivated))
	fmt.Fprintf(w, "Без изменений: %d, пропущено строк: %d\n", len(cs.Unchanged), cs.SkippedRows)
}

func init() {
	RosterCmd.AddCommand(DiffCmd)
	RosterCmd.AddCommand(ApplyCmd)
	RosterCmd.AddCommand(WatchCmd)
}
