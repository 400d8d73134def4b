package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"tejanitos/internal/domain/student"
)

// ErrUnavailable сервер недоступен по сети.
var ErrUnavailable = errors.New("remote store unavailable")

// RequestIDHeader заголовок, по которому запрос клиента находится в логах сервера.
const RequestIDHeader = "X-Request-ID"

// Options параметры подключения к серверу.
type Options struct {
	BaseURL string
	Token   string
	Enabled bool
	Timeout time.Duration
}

// Client удаленное хранилище документов поверх HTTP API сервера.
type Client struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	enabled   bool
	userAgent string
}

func New(opts Options, log *slog.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:       log.With("component", "remote_client"),
		baseURL:   opts.BaseURL,
		token:     opts.Token,
		enabled:   opts.Enabled,
		userAgent: "Tejanitos-Client/1.0",
	}
}

// Ready true, если удаленное хранилище включено и настроено.
func (c *Client) Ready() bool {
	return c.enabled && c.baseURL != ""
}

// HealthCheck проверяет доступность сервера
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, nil)
}

// Online реализует проверку связи для движка синхронизации.
func (c *Client) Online(ctx context.Context) bool {
	if !c.Ready() {
		return false
	}
	return c.HealthCheck(ctx) == nil
}

type document = map[string]any

type studentEnvelope struct {
	Student document `json:"student"`
}

type studentsEnvelope struct {
	Students []document `json:"students"`
}

func (c *Client) CreateRecord(ctx context.Context, s student.Student) (student.Student, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/students", studentEnvelope{Student: s.Document()})
	if err != nil {
		return student.Student{}, err
	}

	var out studentEnvelope
	if err := c.parseResponse(resp, &out); err != nil {
		return student.Student{}, fmt.Errorf("create record: %w", err)
	}
	return student.New(out.Student), nil
}

func (c *Client) UpdateRecord(ctx context.Context, id string, p student.Patch) error {
	body := struct {
		Fields student.Patch `json:"fields"`
	}{Fields: p}

	resp, err := c.doRequest(ctx, http.MethodPatch, "/api/v1/students/"+url.PathEscape(id), body)
	if err != nil {
		return err
	}
	if err := c.parseResponse(resp, nil); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (c *Client) DeleteRecord(ctx context.Context, id, reason string) error {
	path := "/api/v1/students/" + url.PathEscape(id)
	if reason != "" {
		path += "?reason=" + url.QueryEscape(reason)
	}

	resp, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	if err := c.parseResponse(resp, nil); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// FindByBusinessKey возвращает nil без ошибки, если записи нет.
func (c *Client) FindByBusinessKey(ctx context.Context, key string) (*student.Student, error) {
	if student.NormalizeKey(key) == "" {
		return nil, nil
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/students/by-key/"+url.PathEscape(key), nil)
	if err != nil {
		return nil, err
	}

	var out studentEnvelope
	if err := c.parseResponse(resp, &out); err != nil {
		if errors.Is(err, student.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find by key: %w", err)
	}

	rec := student.New(out.Student)
	return &rec, nil
}

func (c *Client) ListAll(ctx context.Context) ([]student.Student, error) {
	return c.list(ctx, "/api/v1/students")
}

func (c *Client) ListInactive(ctx context.Context) ([]student.Student, error) {
	list, err := c.list(ctx, "/api/v1/inactive")
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Activo = false
	}
	return list, nil
}

func (c *Client) list(ctx context.Context, path string) ([]student.Student, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out studentsEnvelope
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	list := make([]student.Student, len(out.Students))
	for i, d := range out.Students {
		list[i] = student.New(d)
	}
	return list, nil
}

func (c *Client) GetInactive(ctx context.Context, id string) (*student.Student, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/inactive/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var out studentEnvelope
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, fmt.Errorf("get inactive: %w", err)
	}

	rec := student.New(out.Student)
	rec.Activo = false
	return &rec, nil
}

func (c *Client) RestoreRecord(ctx context.Context, inactiveID string, target student.Student) error {
	path := "/api/v1/inactive/" + url.PathEscape(inactiveID) + "/restore"
	resp, err := c.doRequest(ctx, http.MethodPost, path, studentEnvelope{Student: target.Document()})
	if err != nil {
		return err
	}
	if err := c.parseResponse(resp, nil); err != nil {
		return fmt.Errorf("restore record: %w", err)
	}
	return nil
}

func (c *Client) DeleteInactive(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	body := struct {
		IDs []string `json:"ids"`
	}{IDs: ids}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/inactive/purge", body)
	if err != nil {
		return 0, err
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := c.parseResponse(resp, &out); err != nil {
		return 0, fmt.Errorf("delete inactive: %w", err)
	}
	return out.Count, nil
}

func (c *Client) BulkImport(ctx context.Context, records []student.Student) (student.ImportResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/students/import", recordsBody(records))
	if err != nil {
		return student.ImportResult{}, err
	}

	var out student.ImportResult
	if err := c.parseResponse(resp, &out); err != nil {
		return student.ImportResult{}, fmt.Errorf("bulk import: %w", err)
	}
	return out, nil
}

func (c *Client) BatchUpdate(ctx context.Context, records []student.Student) (student.BatchResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/students/batch", recordsBody(records))
	if err != nil {
		return student.BatchResult{}, err
	}

	var out student.BatchResult
	if err := c.parseResponse(resp, &out); err != nil {
		return student.BatchResult{}, fmt.Errorf("batch update: %w", err)
	}
	return out, nil
}

func recordsBody(records []student.Student) studentsEnvelope {
	docs := make([]document, len(records))
	for i, r := range records {
		docs[i] = r.Document()
	}
	return studentsEnvelope{Students: docs}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if !c.Ready() {
		return nil, ErrUnavailable
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("Отправка запроса", "method", method, "url", req.URL.String(), "request_id", reqID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return resp, nil
}

func (c *Client) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	c.log.Debug("Получен ответ", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, body)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}

// statusError разбирает тело ошибки huma (detail) или мидлвари авторизации (error).
func statusError(status int, body []byte) error {
	var errResp struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	msg := fmt.Sprintf("статус %d", status)
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Detail != "":
			msg = errResp.Detail
		case errResp.Error != "":
			msg = errResp.Error
		}
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", student.ErrNotFound, msg)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return fmt.Errorf("%w: %s", student.ErrInvalidData, msg)
	}
	return fmt.Errorf("ошибка сервера: %s", msg)
}
