package roster

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
)

var autoApply bool

var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Следить за папкой входящих ведомостей",
	Long: `Запускает фоновую работу клиента: проверку связи, периодическую
синхронизацию очереди и обработку ведомостей, попадающих в INBOX_DIR.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		output.Success("Папка входящих: %s (Ctrl+C для выхода)", app.Config().InboxDir)
		return app.Run(ctx, autoApply)
	},
}

func init() {
	WatchCmd.Flags().BoolVar(&autoApply, "apply", false, "применять изменения без подтверждения")
}
