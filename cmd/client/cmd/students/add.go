package students

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/domain/student"
)

var AddCmd = &cobra.Command{
	Use:   "add Documento=... [Поле=значение ...]",
	Short: "Добавить ученика",
	Long: `Добавляет ученика. Ученик с уже известным документом обновляется,
выбывший с тем же документом возвращается в активные.`,
	Example: `  tejanitos students add Documento=4.567.890-1 "Nombre Completo=Ana Diaz" Turno=Tarde`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		fields, err := parseFields(args)
		if err != nil {
			return err
		}
		rec := student.FromFields(fields)
		if rec.Get(student.FieldTurno) == "" && app.Config().DefaultTurno != "" {
			rec.Set(student.FieldTurno, app.Config().DefaultTurno)
		}

		existing, err := app.Data().LoadAll(cmd.Context(), true)
		if err != nil && !errors.Is(err, data.ErrNoData) {
			return fmt.Errorf("ошибка загрузки данных: %w", err)
		}

		list, err := app.Data().AddRecord(cmd.Context(), existing, rec)
		if err != nil {
			return fmt.Errorf("ошибка добавления: %w", err)
		}
		app.Data().Wait()

		if added, ok := find(list, rec.Documento); ok {
			output.Success("Ученик добавлен (hexId %s)", added.HexID)
		}
		if n := app.Engine().PendingCount(); n > 0 {
			output.Warn("Сервер недоступен, изменение отправится позже (в очереди: %d)", n)
		}
		return nil
	},
}
