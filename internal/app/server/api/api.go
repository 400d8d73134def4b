// GET    /api/v1/health                       # доступность (публичный)
// GET    /api/v1/students                     # активные записи
// POST   /api/v1/students                     # создать (upsert по Documento)
// GET    /api/v1/students/by-key/{key}        # найти по Documento
// PATCH  /api/v1/students/{id}                # частичное обновление
// DELETE /api/v1/students/{id}?reason=        # перенести в неактивные
// POST   /api/v1/students/import              # массовый импорт
// POST   /api/v1/students/batch               # пакетное обновление
// GET    /api/v1/inactive                     # неактивные записи
// GET    /api/v1/inactive/{id}                # неактивная запись
// POST   /api/v1/inactive/{id}/restore        # вернуть в активные
// POST   /api/v1/inactive/purge               # удалить окончательно

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	healthAPI "tejanitos/internal/app/server/api/http/health"
	inactiveAPI "tejanitos/internal/app/server/api/http/inactive"
	"tejanitos/internal/app/server/api/http/middleware"
	"tejanitos/internal/app/server/api/http/middleware/auth"
	"tejanitos/internal/app/server/api/http/middleware/logger"
	studentAPI "tejanitos/internal/app/server/api/http/student"
	"tejanitos/internal/domain/student"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Student  *studentAPI.Handler
	Inactive *inactiveAPI.Handler
}

// Options параметры сборки API
type Options struct {
	Storage   string
	TokenHash string
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(service student.Servicer, opts Options, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Tejanitos API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(service, opts, log)
	h.Health.SetupRoutes(API)
	h.Student.SetupRoutes(API)
	h.Inactive.SetupRoutes(API)

	return mux
}

func handlers(service student.Servicer, opts Options, log *slog.Logger) *Handlers {
	authMW := auth.New(opts.TokenHash, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	if !authMW.Enabled() {
		log.Warn("API_TOKEN_HASH is empty, API is open")
	}

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, opts.Storage, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	studentHandler := studentAPI.NewHandler(service, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	inactiveHandler := inactiveAPI.NewHandler(service, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:   healthHandler,
		Student:  studentHandler,
		Inactive: inactiveHandler,
	}
}
