package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookConfig — параметры доставки события по HTTP.
type WebhookConfig struct {
	// URL — адрес, на который отправляется POST (обязательно).
	URL string

	// Headers — дополнительные заголовки запроса.
	Headers map[string]string

	// Timeout — таймаут запроса (default: 10s).
	Timeout time.Duration

	Client *http.Client
	Logger *slog.Logger
}

// webhookBody — тело запроса вебхука.
type webhookBody struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Webhook создаёт обработчик, отправляющий событие name POST-запросом на cfg.URL.
//
// Ошибки доставки логируются: обработчик не возвращает ошибок,
// а повторная доставка сработавшего события невозможна.
func Webhook(name string, cfg WebhookConfig) (Func, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidHandler)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("event", name, "url", cfg.URL)

	return func(ctx context.Context, payload json.RawMessage) {
		if err := postWebhook(ctx, client, cfg.URL, cfg.Headers, timeout, name, payload); err != nil {
			logger.Error("webhook failed", "error", err)
			return
		}
		logger.Debug("webhook delivered")
	}, nil
}

func postWebhook(ctx context.Context, client *http.Client, url string, headers map[string]string, timeout time.Duration, name string, payload json.RawMessage) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(webhookBody{Event: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("%w: marshal body: %v", ErrWebhook, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrWebhook, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhook, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: HTTP %d: %s", ErrWebhook, resp.StatusCode, truncate(string(respBody), 200))
	}
	return nil
}

// ParseWebhooks разбирает список вида "name=url,name2=url2".
func ParseWebhooks(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("%w: malformed webhook %q", ErrInvalidHandler, part)
		}
		out[name] = url
	}
	return out, nil
}

// truncate обрезает строку до maxLen байт, не разрезая UTF-8 символ.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
