package inactive

import (
	"fmt"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список выбывших",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		list, err := app.Data().GetInactive(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка получения выбывших: %w", err)
		}
		return output.Students(list)
	},
}
