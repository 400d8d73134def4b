package roster

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/domain/roster"
)

var (
	skipChanged     bool
	skipNew         bool
	skipMissing     bool
	skipReactivated bool
	excludeFields   []string
	assumeYes       bool
)

var ApplyCmd = &cobra.Command{
	Use:   "apply <файл>",
	Short: "Применить изменения из ведомости",
	Long: `Сверяет ведомость со списком и применяет выбранные изменения.
Новым ученикам без смены подставляется DEFAULT_TURNO; если смены нет
хотя бы у одного нового ученика, ничего не применяется.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		out, current, err := process(cmd, app, args[0], false)
		if err != nil {
			return err
		}
		if out.ChangeSet.Empty() {
			output.Success("Ведомость совпадает со списком")
			return nil
		}

		sel := selection(out.ChangeSet)
		if !output.JSON {
			printChangeSet(os.Stdout, out.ChangeSet)
		}

		if !assumeYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("требуется подтверждение, используйте --yes")
			}
			fmt.Print("Применить изменения? [y/N]: ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "д" {
				output.Warn("Отменено")
				return nil
			}
		}

		applied, err := app.Data().ApplyChanges(cmd.Context(), sel, current)
		if err != nil {
			return fmt.Errorf("изменения не применены: %w", err)
		}
		app.Data().Wait()

		if output.JSON {
			return output.PrintJSON(applied.Stats)
		}
		s := applied.Stats
		output.Success("Применено: изменено %d, новых %d, выбыло %d, возвращено %d, без изменений %d (всего %d)",
			s.Updated, s.New, s.MarkedInactive, s.Reactivated, s.Unchanged, s.Total)
		if n := app.Engine().PendingCount(); n > 0 {
			output.Warn("В очереди на отправку: %d", n)
		}
		return nil
	},
}

// selection выбор по флагам: пропущенные категории и исключенные поля.
func selection(cs roster.ChangeSet) roster.Selection {
	sel := cs.Select()
	if skipChanged {
		sel.Changed = nil
	}
	if skipNew {
		sel.New = nil
	}
	if skipMissing {
		sel.Missing = nil
	}
	if skipReactivated {
		sel.Reactivated = nil
		changed := make([]roster.Change, 0, len(sel.Changed))
		for _, ch := range sel.Changed {
			if !ch.Reactivation {
				changed = append(changed, ch)
			}
		}
		sel.Changed = changed
	}

	if len(excludeFields) > 0 {
		for i := range sel.Changed {
			sel.Changed[i].Excluded = append(sel.Changed[i].Excluded, excludeFields...)
		}
	}
	return sel
}

func init() {
	ApplyCmd.Flags().BoolVar(&skipChanged, "skip-changed", false, "не применять изменения полей")
	ApplyCmd.Flags().BoolVar(&skipNew, "skip-new", false, "не добавлять новых учеников")
	ApplyCmd.Flags().BoolVar(&skipMissing, "skip-missing", false, "не отмечать выбывшими отсутствующих в ведомости")
	ApplyCmd.Flags().BoolVar(&skipReactivated, "skip-reactivated", false, "не возвращать выбывших")
	ApplyCmd.Flags().StringSliceVar(&excludeFields, "exclude", nil, "поля, которые не менять (через запятую)")
	ApplyCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "не спрашивать подтверждение")
}
