package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// Auth проверяет Bearer-токен по bcrypt-хэшу из конфигурации.
type Auth struct {
	tokenHash []byte
	log       *slog.Logger
}

func New(tokenHash string, log *slog.Logger) *Auth {
	return &Auth{
		tokenHash: []byte(tokenHash),
		log:       log.With("component", "auth_middleware"),
	}
}

type contextKey string

const ClientKey contextKey = "client"

// Enabled false, если хэш токена не задан.
func (a *Auth) Enabled() bool {
	return len(a.tokenHash) > 0
}

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !a.Enabled() {
			next(ctx)
			return
		}

		header := ctx.Header("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.log.Warn("missing bearer token", "remote_addr", ctx.RemoteAddr())
			a.unauthorized(ctx)
			return
		}

		if err := bcrypt.CompareHashAndPassword(a.tokenHash, []byte(token)); err != nil {
			a.log.Warn("invalid bearer token", "remote_addr", ctx.RemoteAddr())
			a.unauthorized(ctx)
			return
		}

		newCtx := context.WithValue(ctx.Context(), ClientKey, ctx.RemoteAddr())
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *Auth) unauthorized(ctx huma.Context) {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.SetStatus(http.StatusUnauthorized)

	err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{
		"error": "Unauthorized",
	})
	if err != nil {
		a.log.Error("failed to write unauthorized response", "error", err)
	}
}

// GetClient адрес клиента, прошедшего проверку.
func GetClient(ctx context.Context) (string, bool) {
	client, ok := ctx.Value(ClientKey).(string)
	return client, ok
}
