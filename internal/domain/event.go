package domain

import (
	"encoding/json"
	"time"
)

// EventKeys — пара ключей одного запланированного события.
//
// Event — маркер с TTL (когда сработать), Data — JSON payload (что передать).
// Data живёт на DataExpiry секунд дольше Event, чтобы listener успел
// прочитать payload после истечения маркера.
type EventKeys struct {
	// Event — ключ события: redular:<scope>:<name>:<id>.
	Event string `json:"event"`

	// Data — ключ данных: redular-data:<scope>:<name>:<id>.
	Data string `json:"data"`
}

// IsZero возвращает true, если пара пустая (событие не запланировано).
func (k EventKeys) IsZero() bool {
	return k.Event == "" && k.Data == ""
}

// EventRef — разобранный ключ события.
//
// Тройка (Scope, Name, ID) однозначно определяет одно запланированное
// событие. Повторное планирование с той же тройкой перезаписывает событие.
type EventRef struct {
	// Scope — id инстанса-владельца или "global".
	Scope string `json:"scope"`

	// Name — логическое имя события.
	Name string `json:"name"`

	// ID — идентификатор конкретного экземпляра события.
	ID string `json:"id"`
}

// IsGlobal возвращает true, если событие адресовано всем инстансам.
func (r EventRef) IsGlobal() bool {
	return r.Scope == GlobalScope
}

// BelongsTo проверяет, должен ли инстанс instanceID обработать событие.
func (r EventRef) BelongsTo(instanceID string) bool {
	return r.Scope == instanceID || r.IsGlobal()
}

// GlobalScope — scope событий, которые обрабатывают все инстансы.
const GlobalScope = "global"

// Source — откуда пришло сработавшее событие.
type Source string

const (
	// SourceExpiry — событие сработало по истечению TTL ключа.
	SourceExpiry Source = "expiry"

	// SourceInstant — событие пришло через pub/sub канал мгновенных событий.
	SourceInstant Source = "instant"
)

// FiredEvent — событие, готовое к передаче обработчику.
type FiredEvent struct {
	// Key — ключ события. Для instant-событий пустой.
	Key string `json:"key,omitempty"`

	EventRef

	// Source — expiry или instant.
	Source Source `json:"source"`

	// Payload — JSON данные события. nil, если данных нет.
	Payload json.RawMessage `json:"payload,omitempty"`

	// FiredAt — время получения уведомления.
	FiredAt time.Time `json:"fired_at"`
}

// InstantMessage — сообщение в канале redular:instant.
//
// Формат на проводе: {"event": string, "client": string, "data": any}.
type InstantMessage struct {
	Event  string          `json:"event"`
	Client string          `json:"client"`
	Data   json.RawMessage `json:"data"`
}

// HasData возвращает true, если сообщение несёт payload.
// JSON null считается отсутствием данных.
func (m InstantMessage) HasData() bool {
	return len(m.Data) > 0 && string(m.Data) != "null"
}
