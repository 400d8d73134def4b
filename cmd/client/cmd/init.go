package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/internal/app/client/remote"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Первоначальная настройка клиента",
	Long: `Команда init записывает config.yaml в каталог конфигурации:
	1. Адрес сервера (пустой адрес - работа только с локальным кешем)
	2. Токен доступа к API сервера
	3. Смену по умолчанию для новых учеников

После записи проверяется соединение с сервером.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output.Title("Настройка Tejanitos")
		in := bufio.NewReader(os.Stdin)

		fmt.Printf("Адрес сервера [%s]: ", cfg.ServerAddress)
		address := readLine(in, cfg.ServerAddress)

		token := cfg.APIToken
		if address != "" {
			fmt.Print("Токен API: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("ошибка чтения токена: %w", err)
			}
			fmt.Println()
			if t := strings.TrimSpace(string(raw)); t != "" {
				token = t
			}
		}

		fmt.Printf("Смена по умолчанию [%s]: ", cfg.DefaultTurno)
		turno := readLine(in, cfg.DefaultTurno)

		viper.Set("server_address", address)
		viper.Set("use_remote", address != "")
		viper.Set("api_token", token)
		viper.Set("default_turno", turno)

		path := filepath.Join(cfg.ConfigDir, "config.yaml")
		if err := viper.WriteConfigAs(path); err != nil {
			return fmt.Errorf("ошибка записи конфигурации: %w", err)
		}
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("ошибка установки прав на конфигурацию: %w", err)
		}
		output.Success("Конфигурация сохранена: %s", path)

		if address == "" {
			output.Warn("Сервер не указан, данные хранятся только локально")
			return nil
		}

		cfg.ServerAddress = address
		rc := remote.New(remote.Options{BaseURL: cfg.BaseURL(), Token: token, Enabled: true}, log)
		if err := rc.HealthCheck(cmd.Context()); err != nil {
			output.Warn("Сервер пока недоступен: %v", err)
			return nil
		}
		output.Success("Соединение с сервером установлено")
		return nil
	},
}

func readLine(in *bufio.Reader, def string) string {
	line, _ := in.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}
