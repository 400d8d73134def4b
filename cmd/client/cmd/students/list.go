package students

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/domain/student"
)

var (
	withInactive bool
	listTurno    string
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список учеников",
	Long: `Список учеников из сервера, а без связи из локального кеша.

Несинхронизированные изменения уже учтены в выводе.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		list, err := app.Data().LoadAll(cmd.Context(), withInactive)
		if err != nil && !errors.Is(err, data.ErrNoData) {
			return fmt.Errorf("ошибка получения списка: %w", err)
		}

		if listTurno != "" {
			filtered := list[:0]
			for _, s := range list {
				if strings.EqualFold(s.Get(student.FieldTurno), listTurno) {
					filtered = append(filtered, s)
				}
			}
			list = filtered
		}

		if n := app.Engine().PendingCount(); n > 0 && !output.JSON {
			output.Warn("Не отправлено на сервер операций: %d", n)
		}
		return output.Students(list)
	},
}

func init() {
	ListCmd.Flags().BoolVarP(&withInactive, "all", "a", false, "включая выбывших")
	ListCmd.Flags().StringVar(&listTurno, "turno", "", "только указанная смена")
}
