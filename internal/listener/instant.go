package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/store"
)

// Instant слушает канал мгновенных событий redular:instant.
type Instant struct {
	*base
}

// NewInstant создаёт listener канала мгновенных событий.
func NewInstant(cfg Config) *Instant {
	return &Instant{base: newBase(cfg, store.RoleInstant, keys.InstantChannel)}
}

// Run обрабатывает сообщения до отмены ctx или фатальной ошибки.
func (i *Instant) Run(ctx context.Context) error {
	return i.run(ctx, i.HandleMessage)
}

// HandleMessage обрабатывает одно сообщение канала.
// Некорректный JSON — ErrDeserialization.
func (i *Instant) HandleMessage(ctx context.Context, raw string) error {
	var msg domain.InstantMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return fmt.Errorf("%w: instant message: %v", ErrDeserialization, err)
	}

	if msg.Client != i.instanceID && msg.Client != domain.GlobalScope {
		i.metrics.NotificationIgnored("foreign_scope")
		return nil
	}

	handler := i.currentHandler()
	if handler == nil {
		return fmt.Errorf("%w: instant %s", ErrNoHandler, msg.Event)
	}

	var payload json.RawMessage
	if msg.HasData() {
		payload = msg.Data
	}

	i.metrics.EventFired(string(domain.SourceInstant))
	i.logger.Debug("instant event received", "event", msg.Event, "client", msg.Client)

	handler(ctx, domain.FiredEvent{
		EventRef: domain.EventRef{Scope: msg.Client, Name: msg.Event},
		Source:   domain.SourceInstant,
		Payload:  payload,
		FiredAt:  i.now(),
	})
	return nil
}
