package inactive

import (
	"github.com/spf13/cobra"
)

// InactiveCmd - родительская команда для выбывших учеников
var InactiveCmd = &cobra.Command{
	Use:   "inactive",
	Short: "Выбывшие ученики",
	Long:  `Просмотр, восстановление и окончательное удаление выбывших учеников.`,
}

func init() {
	InactiveCmd.AddCommand(ListCmd)
	InactiveCmd.AddCommand(RestoreCmd)
	InactiveCmd.AddCommand(PurgeCmd)
}
