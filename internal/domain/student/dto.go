package student

// ImportResult итог массового импорта.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
	Total   int `json:"total"`
}

// Add суммирует результаты частичных импортов.
func (r ImportResult) Add(o ImportResult) ImportResult {
	return ImportResult{
		Created: r.Created + o.Created,
		Updated: r.Updated + o.Updated,
		Errors:  r.Errors + o.Errors,
		Total:   r.Total + o.Total,
	}
}

// BatchResult итог пакетного обновления.
type BatchResult struct {
	Count int `json:"count"`
}
