package student

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/students",
		Summary:     "Список активных учеников",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/students",
		Summary:     "Создать ученика",
		Description: "Назначает hexId, если его нет. Существующий Documento обновляется, а не дублируется.",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) findByKeyOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-find-by-key",
		Method:      http.MethodGet,
		Path:        "/api/v1/students/by-key/{key}",
		Summary:     "Найти ученика по Documento",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-update",
		Method:      http.MethodPatch,
		Path:        "/api/v1/students/{id}",
		Summary:     "Частично обновить ученика",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-delete",
		Method:      http.MethodDelete,
		Path:        "/api/v1/students/{id}",
		Summary:     "Перевести ученика в неактивные",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) importOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-import",
		Method:      http.MethodPost,
		Path:        "/api/v1/students/import",
		Summary:     "Массовый импорт",
		Description: "Ищет запись по hexId, затем по Documento; обновляет найденную или создает новую.",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) batchOp() huma.Operation {
	return huma.Operation{
		OperationID: "students-batch-update",
		Method:      http.MethodPost,
		Path:        "/api/v1/students/batch",
		Summary:     "Пакетное обновление по id",
		Tags:        []string{"students"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
