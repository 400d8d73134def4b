package student

import (
	"tejanitos/internal/domain/student"
)

// Записи передаются плоскими JSON-объектами, поэтому в DTO используется map.
type document = map[string]any

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Students []document `json:"students"`
	Total    int        `json:"total"`
}

type createInput struct {
	Body struct {
		Student document `json:"student" doc:"Запись ученика, Documento обязателен"`
	}
}

type studentOutput struct {
	Body studentResponse
}

type studentResponse struct {
	Status  string   `json:"status"`
	Student document `json:"student,omitempty"`
}

type byKeyInput struct {
	Key string `path:"key" example:"12.345.678-9" doc:"Documento, нормализуется на сервере"`
}

type updateInput struct {
	ID   string `path:"id" doc:"ID документа"`
	Body struct {
		Fields map[string]string `json:"fields" doc:"Поля для частичного обновления"`
	}
}

type deleteInput struct {
	ID     string `path:"id" doc:"ID документа"`
	Reason string `query:"reason" doc:"Причина перевода в неактивные"`
}

type recordsInput struct {
	Body struct {
		Students []document `json:"students"`
	}
}

type importOutput struct {
	Body student.ImportResult
}

type batchOutput struct {
	Body student.BatchResult
}

type output struct {
	Body response
}

type response struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}

func toDocuments(list []student.Student) []document {
	docs := make([]document, len(list))
	for i, s := range list {
		docs[i] = s.Document()
	}
	return docs
}

func fromDocuments(docs []document) []student.Student {
	list := make([]student.Student, len(docs))
	for i, d := range docs {
		list[i] = student.New(d)
	}
	return list
}
