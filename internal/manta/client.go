// client.go — HTTP-клиент к Manta records API.
// Реализует records.Store: fetch, create, update, delete.
// Ошибки backend классифицируются в records.ErrTableNotFound и
// records.ErrUnknownField, остальные возвращаются как *APIError.
package manta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bigkaa/tickly/internal/records"
)

// APIError — ошибка, возвращённая Manta.
type APIError struct {
	// Op — операция (fetch, create, update, delete, login, signup)
	Op string
	// StatusCode — HTTP-статус ответа
	StatusCode int
	// Message — текст ошибки backend
	Message string

	kind error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("manta %s: статус %d: %s", e.Op, e.StatusCode, msg)
}

// Unwrap возвращает класс ошибки (records.ErrTableNotFound и т.п.), если он определён.
func (e *APIError) Unwrap() error {
	return e.kind
}

// Client — HTTP-клиент к Manta.
type Client struct {
	baseURL string // Базовый URL records API (без trailing slash)
	authURL string // URL auth workflow (пусто — login/signup недоступны)
	sdkKey  string

	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент Manta.
// baseURL — базовый URL records API (например, https://api.mantahq.com/api/sdk/v1).
// authURL — URL auth workflow, к нему добавляются /login и /signup.
// httpClient — HTTP-клиент (nil — клиент с таймаутом 30s).
func New(baseURL, authURL, sdkKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authURL:    strings.TrimRight(authURL, "/"),
		sdkKey:     sdkKey,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "manta_client")),
	}
}

// BaseURL возвращает базовый URL records API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- HTTP helpers ---

// doJSON выполняет POST с JSON-телом. authorized добавляет SDK-ключ.
func (c *Client) doJSON(ctx context.Context, reqURL string, body any, authorized bool) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("сериализация тела запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+c.sdkKey)
	}

	return c.httpClient.Do(req)
}

// call выполняет операцию records API и возвращает разобранный конверт.
func (c *Client) call(ctx context.Context, op string, body recordsRequest) (*envelope, error) {
	resp, err := c.doJSON(ctx, c.baseURL+"/records/"+op, body, true)
	if err != nil {
		return nil, fmt.Errorf("manta %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("manta %s: чтение ответа: %w", op, err)
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, newAPIError(op, resp.StatusCode, strings.TrimSpace(string(raw)))
			}
			return nil, fmt.Errorf("manta %s: декодирование ответа: %w", op, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.ok() {
		apiErr := newAPIError(op, resp.StatusCode, env.message())
		c.logger.Debug("Manta вернула ошибку",
			slog.String("op", op),
			slog.String("table", body.Table),
			slog.Int("status", resp.StatusCode),
			slog.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	return &env, nil
}

// newAPIError создаёт APIError и определяет его класс.
func newAPIError(op string, status int, message string) *APIError {
	return &APIError{
		Op:         op,
		StatusCode: status,
		Message:    message,
		kind:       classify(status, message),
	}
}

// classify определяет класс ошибки по тексту сообщения.
// Manta не возвращает машиночитаемых кодов, поэтому используется текст.
func classify(status int, message string) error {
	msg := strings.ToLower(message)
	missing := strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "doesn't exist") ||
		strings.Contains(msg, "no such")

	switch {
	case strings.Contains(msg, "unknown field"),
		strings.Contains(msg, "unknown column"),
		strings.Contains(msg, "invalid field"),
		strings.Contains(msg, "not allowed"),
		(strings.Contains(msg, "column") || strings.Contains(msg, "field")) && missing:
		return records.ErrUnknownField
	case strings.Contains(msg, "table") && missing,
		strings.Contains(msg, "access denied") && strings.Contains(msg, "table"):
		return records.ErrTableNotFound
	case status == http.StatusNotFound && msg == "":
		return records.ErrTableNotFound
	}
	return nil
}

// --- records.Store ---

// Fetch выполняет выборку записей.
func (c *Client) Fetch(ctx context.Context, q records.Query) (*records.Result, error) {
	body := recordsRequest{
		Table:   q.Table,
		Fields:  q.Fields,
		Where:   q.Where,
		OrderBy: q.OrderBy,
		Order:   q.Order,
		Search:  q.Search,
	}
	if q.List > 0 {
		body.List = q.List
		body.Page = max(q.Page, 1)
	}

	env, err := c.call(ctx, "fetch", body)
	if err != nil {
		return nil, err
	}

	rows, err := env.rows()
	if err != nil {
		return nil, fmt.Errorf("manta fetch: декодирование data: %w", err)
	}

	res := &records.Result{Data: rows}
	if q.List > 0 {
		res.Meta = env.Meta
	}
	return res, nil
}

// Create вставляет записи.
func (c *Client) Create(ctx context.Context, table string, rows []records.Record) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := c.call(ctx, "create", recordsRequest{Table: table, Data: rows})
	return err
}

// Update обновляет записи, подходящие под where.
func (c *Client) Update(ctx context.Context, table string, where, data records.Record) error {
	if len(where) == 0 {
		return errors.New("manta update: пустое условие where")
	}
	_, err := c.call(ctx, "update", recordsRequest{Table: table, Where: where, Data: data})
	return err
}

// Delete удаляет записи, подходящие под where.
func (c *Client) Delete(ctx context.Context, table string, where records.Record) error {
	if len(where) == 0 {
		return errors.New("manta delete: пустое условие where")
	}
	_, err := c.call(ctx, "delete", recordsRequest{Table: table, Where: where})
	return err
}

// --- Readiness checker ---

// ReadinessChecker проверяет доступность Manta выборкой одной записи
// из таблицы пользователей.
type ReadinessChecker struct {
	client *Client
	table  string
}

// NewReadinessChecker создаёт проверку готовности Manta.
func NewReadinessChecker(client *Client, table string) *ReadinessChecker {
	return &ReadinessChecker{client: client, table: table}
}

// CheckReady реализует handlers.ReadinessChecker.
func (r *ReadinessChecker) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := r.client.Fetch(ctx, records.Query{Table: r.table, List: 1})
	if err == nil {
		return "ok", fmt.Sprintf("Manta %s доступна", r.client.BaseURL())
	}
	if errors.Is(err, records.ErrTableNotFound) {
		return "degraded", fmt.Sprintf("Таблица %s в Manta %s недоступна: %v", r.table, r.client.BaseURL(), err)
	}
	return "fail", fmt.Sprintf("Manta %s недоступна: %v", r.client.BaseURL(), err)
}
