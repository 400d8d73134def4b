package logger

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// RequestIDHeader совпадает с заголовком, который выставляет клиент.
const RequestIDHeader = "X-Request-ID"

// Logger пишет по строке на каждый запрос к API.
type Logger struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Logger {
	return &Logger{
		log: log.With(slog.String("component", "http_logger")),
	}
}

// Middleware логирует запрос после обработки. Уровень зависит от статуса ответа.
// Идентификатор запроса берется из заголовка или создается и возвращается клиенту.
func (l *Logger) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		reqID := ctx.Header(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx.SetHeader(RequestIDHeader, reqID)

		next(ctx)

		status := ctx.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		l.log.Log(ctx.Context(), level, "request handled",
			slog.String("request_id", reqID),
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("remote_addr", ctx.RemoteAddr()),
		)
	}
}
