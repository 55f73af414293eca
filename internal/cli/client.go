package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ScheduledEvent — результат планирования события.
type ScheduledEvent struct {
	EventKey string `json:"event_key"`
	DataKey  string `json:"data_key"`
	At       string `json:"at"`
}

// EventResponse — запланированное событие из API.
type EventResponse struct {
	Key   string `json:"key"`
	Scope string `json:"scope"`
	Name  string `json:"name"`
	ID    string `json:"id"`
	At    string `json:"at"`
}

// ExpiryResponse — время срабатывания события.
type ExpiryResponse struct {
	Key string `json:"key"`
	At  string `json:"at"`
}

// InstanceResponse — информация об инстансе.
type InstanceResponse struct {
	InstanceID string   `json:"instance_id"`
	Handlers   []string `json:"handlers"`
}

// HistoryEntry — запись журнала сработавших событий.
type HistoryEntry struct {
	ID         int64           `json:"id"`
	Key        string          `json:"key,omitempty"`
	Scope      string          `json:"scope"`
	Name       string          `json:"name"`
	EventID    string          `json:"event_id,omitempty"`
	Source     string          `json:"source"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	FiredAt    string          `json:"fired_at"`
	RecordedAt string          `json:"recorded_at"`
}

// --- Request types ---

// ScheduleEventRequest — планирование события.
type ScheduleEventRequest struct {
	Name     string          `json:"name"`
	At       *time.Time      `json:"at,omitempty"`
	DelaySec int             `json:"delay_sec,omitempty"`
	Global   bool            `json:"global,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	ID       string          `json:"id,omitempty"`
}

// InstantEventRequest — мгновенное событие.
type InstantEventRequest struct {
	Name    string          `json:"name"`
	Global  bool            `json:"global,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ListEventsOpts — диапазон выборки событий. Пустые значения — по умолчанию сервера.
type ListEventsOpts struct {
	Start time.Time
	End   time.Time
}

// HistoryOpts — параметры выборки журнала.
type HistoryOpts struct {
	Name   string
	Source string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Redular API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Events ---

// ScheduleEvent планирует событие.
func (c *Client) ScheduleEvent(req ScheduleEventRequest) (*ScheduledEvent, error) {
	var ev ScheduledEvent
	err := c.post("/api/v1/events", req, &ev)
	return &ev, err
}

// ListEvents возвращает события в диапазоне.
func (c *Client) ListEvents(opts ListEventsOpts) ([]EventResponse, error) {
	params := url.Values{}
	if !opts.Start.IsZero() {
		params.Set("start", opts.Start.Format(time.RFC3339))
	}
	if !opts.End.IsZero() {
		params.Set("end", opts.End.Format(time.RFC3339))
	}

	var events []EventResponse
	err := c.list("/api/v1/events", params, &events)
	return events, err
}

// DeleteEvent удаляет событие.
func (c *Client) DeleteEvent(key string) error {
	return c.delete("/api/v1/events/" + url.PathEscape(key))
}

// GetEventExpiry возвращает время срабатывания события.
func (c *Client) GetEventExpiry(key string) (*ExpiryResponse, error) {
	var expiry ExpiryResponse
	err := c.get("/api/v1/events/"+url.PathEscape(key), &expiry)
	return &expiry, err
}

// InstantEvent публикует мгновенное событие.
func (c *Client) InstantEvent(req InstantEventRequest) error {
	return c.post("/api/v1/instant", req, nil)
}

// --- Maintenance ---

// Prune удаляет осиротевшие данные событий.
func (c *Client) Prune() error {
	return c.post("/api/v1/prune", nil, nil)
}

// Instance возвращает информацию об инстансе.
func (c *Client) Instance() (*InstanceResponse, error) {
	var inst InstanceResponse
	err := c.get("/api/v1/instance", &inst)
	return &inst, err
}

// --- History ---

// History возвращает журнал сработавших событий.
func (c *Client) History(opts HistoryOpts) ([]HistoryEntry, error) {
	params := url.Values{}
	if opts.Name != "" {
		params.Set("name", opts.Name)
	}
	if opts.Source != "" {
		params.Set("source", opts.Source)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var entries []HistoryEntry
	err := c.list("/api/v1/history", params, &entries)
	return entries, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
