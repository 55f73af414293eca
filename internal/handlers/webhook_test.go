package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"
)

func TestWebhook_Delivers(t *testing.T) {
	received := make(chan webhookBody, 1)
	var gotHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		gotHeader = r.Header.Get("X-Token")
		var body webhookBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	fn, err := Webhook("goodbye", WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"X-Token": "secret"},
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Webhook error: %v", err)
	}

	fn(context.Background(), json.RawMessage(`{"test":"Hello"}`))

	body := <-received
	if body.Event != "goodbye" {
		t.Errorf("expected event goodbye, got %s", body.Event)
	}
	if string(body.Payload) != `{"test":"Hello"}` {
		t.Errorf("unexpected payload: %s", body.Payload)
	}
	if gotHeader != "secret" {
		t.Errorf("expected X-Token header, got %q", gotHeader)
	}
}

func TestWebhook_RequiresURL(t *testing.T) {
	_, err := Webhook("goodbye", WebhookConfig{})
	if !errors.Is(err, ErrInvalidHandler) {
		t.Errorf("expected ErrInvalidHandler, got %v", err)
	}
}

func TestPostWebhook_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream down")
	}))
	defer srv.Close()

	err := postWebhook(context.Background(), srv.Client(), srv.URL, nil, defaultWebhookTimeout, "goodbye", nil)
	if !errors.Is(err, ErrWebhook) {
		t.Errorf("expected ErrWebhook, got %v", err)
	}
}

func TestParseWebhooks(t *testing.T) {
	got, err := ParseWebhooks(" goodbye=http://a/x , ping=http://b/y,")
	if err != nil {
		t.Fatalf("ParseWebhooks error: %v", err)
	}
	if len(got) != 2 || got["goodbye"] != "http://a/x" || got["ping"] != "http://b/y" {
		t.Errorf("unexpected result: %v", got)
	}

	for _, bad := range []string{"goodbye", "=http://a", "goodbye="} {
		if _, err := ParseWebhooks(bad); !errors.Is(err, ErrInvalidHandler) {
			t.Errorf("ParseWebhooks(%q): expected ErrInvalidHandler, got %v", bad, err)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("expected abc..., got %s", got)
	}
	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("expected ab, got %s", got)
	}

	// "привет": 2 байта на букву, граница 3 приходится на середину "р"
	got := truncate("привет", 3)
	if got != "п..." {
		t.Errorf("expected п..., got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncate produced invalid UTF-8: %q", got)
	}
}
