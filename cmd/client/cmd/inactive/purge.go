package inactive

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/domain/student"
)

var expired bool

var PurgeCmd = &cobra.Command{
	Use:   "purge [id|hexId ...]",
	Short: "Окончательно удалить выбывших",
	Long: `Удаляет выбывших учеников без возможности восстановления.

С --expired удаляются все выбывшие раньше, чем POOL_DAYS дней назад.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 && !expired {
			return fmt.Errorf("укажите записи или --expired")
		}

		list, err := app.Data().GetInactive(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения выбывших: %w", err)
		}

		var batch []student.Student
		if expired {
			batch = data.Expired(list, app.Config().PoolDays, time.Now())
		}
		for _, ref := range args {
			found := false
			for _, s := range list {
				if s.ID == ref || s.HexID == ref {
					batch = append(batch, s)
					found = true
					break
				}
			}
			if !found {
				output.Warn("Выбывший ученик %s не найден", ref)
			}
		}

		if len(batch) == 0 {
			output.Warn("Нечего удалять")
			return nil
		}

		res := app.Data().DeleteInactivePermanently(cmd.Context(), batch)
		if output.JSON {
			return output.PrintJSON(res)
		}
		if !res.Success {
			return fmt.Errorf("удаление не выполнено: %s", res.Error)
		}
		output.Success("Удалено записей: %d", res.Count)
		return nil
	},
}

func init() {
	PurgeCmd.Flags().BoolVar(&expired, "expired", false, "удалить всех выбывших старше POOL_DAYS дней")
}
