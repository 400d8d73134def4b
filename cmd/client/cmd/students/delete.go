package students

import (
	"fmt"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/domain/student"
)

var deleteReason string

var DeleteCmd = &cobra.Command{
	Use:   "delete <id|hexId|документ> [...]",
	Short: "Отметить учеников выбывшими",
	Long: `Переводит учеников в выбывшие. Записи не удаляются и могут быть
возвращены командой inactive restore.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		existing, err := app.Data().LoadAll(cmd.Context(), true)
		if err != nil {
			return fmt.Errorf("ошибка загрузки данных: %w", err)
		}

		targets := make([]student.Student, 0, len(args))
		for _, ref := range args {
			s, ok := find(existing, ref)
			if !ok || !s.IsActive() {
				output.Warn("Активный ученик %s не найден", ref)
				continue
			}
			targets = append(targets, s)
		}
		if len(targets) == 0 {
			return fmt.Errorf("нечего удалять")
		}

		if _, err := app.Data().DeleteBatch(cmd.Context(), existing, targets, deleteReason); err != nil {
			return fmt.Errorf("ошибка удаления: %w", err)
		}
		app.Data().Wait()

		output.Success("Выбыло учеников: %d", len(targets))
		return nil
	},
}

func init() {
	DeleteCmd.Flags().StringVarP(&deleteReason, "reason", "r", "", "причина выбытия")
}
