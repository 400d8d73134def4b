package types

import (
	"fmt"

	"github.com/spf13/cobra"

	"tejanitos/internal/app/client"
)

type contextKey string

// ClientAppKey ключ, под которым корневая команда кладет *client.App в контекст.
const ClientAppKey contextKey = "app"

// AppFrom достает приложение из контекста команды.
func AppFrom(cmd *cobra.Command) (*client.App, error) {
	app, ok := cmd.Context().Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}
