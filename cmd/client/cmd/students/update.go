package students

import (
	"fmt"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
)

var UpdateCmd = &cobra.Command{
	Use:   "update <id|hexId|документ> Поле=значение [...]",
	Short: "Изменить поля ученика",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		fields, err := parseFields(args[1:])
		if err != nil {
			return err
		}

		existing, err := app.Data().LoadAll(cmd.Context(), false)
		if err != nil {
			return fmt.Errorf("ошибка загрузки данных: %w", err)
		}

		cur, ok := find(existing, args[0])
		if !ok {
			return fmt.Errorf("ученик %s не найден", args[0])
		}

		updated := cur.Clone()
		for k, v := range fields {
			updated.Set(k, v)
		}

		if _, err := app.Data().UpdateRecord(cmd.Context(), existing, updated); err != nil {
			return fmt.Errorf("ошибка изменения: %w", err)
		}
		app.Data().Wait()

		output.Success("Ученик %s изменен", updated.Documento)
		return nil
	},
}
