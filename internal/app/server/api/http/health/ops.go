package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Проверка доступности",
		Description: "Используется клиентом для определения связи с хранилищем документов",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
