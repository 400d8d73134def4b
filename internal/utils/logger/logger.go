package logger

import (
	"io"
	"os"

	"golang.org/x/exp/slog"
	"gopkg.in/natefinch/lumberjack.v2"

	"tejanitos/internal/app/server/config"
)

// New создает логгер под окружение: local - цветной текст, dev - JSON с debug, prod - JSON с info.
func New(env string) *slog.Logger {
	return build(env, os.Stdout)
}

// NewWithFile дублирует вывод в файл с ротацией. Пустой путь эквивалентен New.
func NewWithFile(env, path string) *slog.Logger {
	if path == "" {
		return New(env)
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	if env == config.EnvLocal {
		// цветной вывод в файл не пишем
		return slog.New(newMultiHandler(
			setupPrettySlog().Handler(),
			slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: slog.LevelDebug}),
		))
	}

	return build(env, io.MultiWriter(os.Stdout, rotator))
}

func build(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = setupPrettySlog()
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
