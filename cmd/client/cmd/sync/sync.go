package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client"
	"tejanitos/internal/app/client/queue"
)

var syncStatus bool

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Отправить отложенные изменения",
	Long: `Воспроизводит на сервере операции, накопленные без связи, в порядке
их выполнения. С --status только показывает состояние очереди.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		if syncStatus {
			return showSyncStatus(cmd.Context(), app)
		}
		return runSync(cmd.Context(), app)
	},
}

func runSync(ctx context.Context, app *client.App) error {
	start := time.Now()

	res, err := app.Sync(ctx)
	if err != nil {
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	if output.JSON {
		return output.PrintJSON(res)
	}

	switch {
	case res.InProgress:
		output.Warn("Синхронизация уже выполняется")
	case res.Offline:
		output.Warn("Сервер недоступен, в очереди операций: %d", res.Remaining)
	case res.Success:
		output.Success("Синхронизация завершена за %v", time.Since(start).Round(time.Millisecond))
	default:
		output.Fail("Синхронизация завершена с ошибками")
	}

	fmt.Printf("Отправлено: %d, пропущено: %d, ошибок: %d, осталось: %d\n",
		res.Replayed, res.Skipped, res.Failed, res.Remaining)
	if imp := res.Import; imp.Total > 0 {
		fmt.Printf("Импорт: создано %d, обновлено %d, ошибок %d из %d\n",
			imp.Created, imp.Updated, imp.Errors, imp.Total)
	}
	return nil
}

func showSyncStatus(ctx context.Context, app *client.App) error {
	engine := app.Engine()
	stats := engine.Stats()

	if output.JSON {
		return output.PrintJSON(struct {
			Status  queue.Status    `json:"status"`
			Pending []queue.Pending `json:"pending"`
			Stats   queue.Stats     `json:"stats"`
		}{engine.Status(), engine.Pending(), stats})
	}

	output.Title("Статус синхронизации")
	fmt.Printf("Состояние: %s\n", engine.Status())
	fmt.Printf("В очереди: %d\n", engine.PendingCount())
	for _, p := range engine.Pending() {
		fmt.Printf("  %s  %-12s %s\n", p.Timestamp.Format("2006-01-02 15:04:05"), p.Op.Kind(), p.ID)
	}

	fmt.Printf("Проходов: %d, отправлено: %d, ошибок: %d, пропущено: %d\n",
		stats.Passes, stats.Replayed, stats.Failed, stats.Skipped)
	if !stats.LastSuccess.IsZero() {
		fmt.Printf("Последняя успешная: %s\n", stats.LastSuccess.Format("2006-01-02 15:04:05"))
	}
	if stats.LastError != "" {
		output.Warn("Последняя ошибка: %s", stats.LastError)
	}

	if err := app.CheckConnection(ctx); err != nil {
		output.Fail("Соединение с сервером: %v", err)
	} else {
		output.Success("Соединение с сервером: OK")
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
}
