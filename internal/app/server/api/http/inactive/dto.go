package inactive

type document = map[string]any

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Students []document `json:"students"`
	Total    int        `json:"total"`
}

type getInput struct {
	ID string `path:"id" doc:"ID неактивного документа"`
}

type getOutput struct {
	Body getResponse
}

type getResponse struct {
	Status  string   `json:"status"`
	Student document `json:"student"`
}

type restoreInput struct {
	ID   string `path:"id" doc:"ID неактивного документа"`
	Body struct {
		Student document `json:"student" doc:"Итоговая запись; id задает активный документ, в который она пишется"`
	}
}

type purgeInput struct {
	Body struct {
		IDs []string `json:"ids" minItems:"1"`
	}
}

type purgeOutput struct {
	Body purgeResponse
}

type purgeResponse struct {
	Count int `json:"count"`
}

type output struct {
	Body response
}

type response struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
}
