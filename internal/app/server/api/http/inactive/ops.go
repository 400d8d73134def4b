package inactive

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "inactive-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/inactive",
		Summary:     "Список неактивных учеников",
		Tags:        []string{"inactive"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "inactive-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/inactive/{id}",
		Summary:     "Получить неактивного ученика",
		Tags:        []string{"inactive"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) restoreOp() huma.Operation {
	return huma.Operation{
		OperationID: "inactive-restore",
		Method:      http.MethodPost,
		Path:        "/api/v1/inactive/{id}/restore",
		Summary:     "Вернуть ученика в активные",
		Description: "Пишет запись в активную коллекцию под ее id и удаляет неактивную копию одной транзакцией.",
		Tags:        []string{"inactive"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) purgeOp() huma.Operation {
	return huma.Operation{
		OperationID: "inactive-purge",
		Method:      http.MethodPost,
		Path:        "/api/v1/inactive/purge",
		Summary:     "Окончательно удалить неактивных",
		Tags:        []string{"inactive"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
