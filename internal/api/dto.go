package api

import (
	"encoding/json"
	"time"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/repo"
)

// Event DTOs

// ScheduleEventRequest — запрос на планирование события.
// Нужно указать либо at, либо delay_sec.
type ScheduleEventRequest struct {
	Name     string          `json:"name"`
	At       *time.Time      `json:"at,omitempty"`
	DelaySec int             `json:"delay_sec,omitempty"`
	Global   bool            `json:"global,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	ID       string          `json:"id,omitempty"`
}

// ScheduleEventResponse — ответ на планирование события.
type ScheduleEventResponse struct {
	EventKey string    `json:"event_key"`
	DataKey  string    `json:"data_key"`
	At       time.Time `json:"at"`
}

// EventResponse — запланированное событие.
type EventResponse struct {
	Key   string    `json:"key"`
	Scope string    `json:"scope"`
	Name  string    `json:"name"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

// EventFromKey собирает EventResponse из ключа события и времени срабатывания.
func EventFromKey(key string, at time.Time) EventResponse {
	resp := EventResponse{Key: key, At: at}
	if ref, err := keys.Decode(key); err == nil {
		resp.Scope = ref.Scope
		resp.Name = ref.Name
		resp.ID = ref.ID
	}
	return resp
}

// ExpiryResponse — время срабатывания события.
type ExpiryResponse struct {
	Key string    `json:"key"`
	At  time.Time `json:"at"`
}

// Instant DTOs

// InstantEventRequest — запрос на мгновенное событие.
type InstantEventRequest struct {
	Name    string          `json:"name"`
	Global  bool            `json:"global,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InstantEventResponse — ответ на мгновенное событие.
type InstantEventResponse struct {
	Published bool `json:"published"`
}

// Maintenance DTOs

// PruneResponse — ответ на очистку данных.
type PruneResponse struct {
	Pruned bool `json:"pruned"`
}

// InstanceResponse — информация об инстансе.
type InstanceResponse struct {
	InstanceID string   `json:"instance_id"`
	Handlers   []string `json:"handlers"`
}

// History DTOs

// HistoryEntryResponse — запись журнала.
type HistoryEntryResponse struct {
	ID         int64           `json:"id"`
	Key        string          `json:"key,omitempty"`
	Scope      string          `json:"scope"`
	Name       string          `json:"name"`
	EventID    string          `json:"event_id,omitempty"`
	Source     domain.Source   `json:"source"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	FiredAt    time.Time       `json:"fired_at"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// HistoryEntryFromRepo конвертирует repo.JournalEntry в HistoryEntryResponse.
func HistoryEntryFromRepo(e repo.JournalEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:         e.ID,
		Key:        e.Key,
		Scope:      e.Scope,
		Name:       e.Name,
		EventID:    e.EventID,
		Source:     e.Source,
		Payload:    e.Payload,
		FiredAt:    e.FiredAt,
		RecordedAt: e.RecordedAt,
	}
}
