package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"tejanitos/cmd/client/cmd/inactive"
	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/roster"
	"tejanitos/cmd/client/cmd/students"
	"tejanitos/cmd/client/cmd/sync"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client"
	"tejanitos/internal/app/client/config"
	"tejanitos/internal/utils/logger"
)

var (
	cfgFile   string
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	debug     bool
	serverURL string
	offline   bool
)

var rootCmd = &cobra.Command{
	Use:   "tejanitos",
	Short: "Tejanitos - учет учеников с работой без сети",
	Long: `Tejanitos ведет список учеников в локальном кеше и синхронизирует его
с сервером. Изменения, сделанные без связи, копятся в очереди и отправляются
при восстановлении соединения.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: shutdownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.Fail("Ошибка: %v", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	if serverURL != "" {
		cfg.ServerAddress = serverURL
		cfg.UseRemote = true
	}
	if offline {
		cfg.UseRemote = false
	}
	if debug {
		cfg.Env = "local"
	}

	log = logger.NewWithFile(cfg.Env, cfg.LogFile)

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, types.ClientAppKey, app))

	return nil
}

func shutdownApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(home + "/.tejanitos")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "конфигурационный файл")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "включить отладочный режим")
	rootCmd.PersistentFlags().BoolVar(&output.JSON, "json", false, "вывод в формате JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера (host:port)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "работать только с локальным кешем")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(students.StudentsCmd)
	rootCmd.AddCommand(inactive.InactiveCmd)
	rootCmd.AddCommand(roster.RosterCmd)
	rootCmd.AddCommand(sync.SyncCmd)
}
