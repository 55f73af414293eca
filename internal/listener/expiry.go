package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/store"
)

// Expiry слушает уведомления об истечении ключей событий.
type Expiry struct {
	*base
}

// NewExpiry создаёт listener для канала __keyevent@<db>__:expired.
// Подписка выполняется в Subscribe.
func NewExpiry(cfg Config) *Expiry {
	channel := store.ExpiredChannel(cfg.Store.DB())
	return &Expiry{base: newBase(cfg, store.RoleExpiry, channel)}
}

// Run обрабатывает уведомления до отмены ctx или фатальной ошибки.
func (e *Expiry) Run(ctx context.Context) error {
	return e.run(ctx, e.HandleNotification)
}

// HandleNotification обрабатывает одно уведомление об истёкшем ключе.
//
//  1. Ключ не похож на ключ события — игнорируется.
//  2. Событие чужого инстанса — отбрасывается.
//  3. Нет обработчика — ErrNoHandler.
//  4. Payload читается из ключа данных; некорректный JSON — ErrDeserialization.
func (e *Expiry) HandleNotification(ctx context.Context, eventKey string) error {
	ref, err := keys.Decode(eventKey)
	if err != nil {
		e.metrics.NotificationIgnored("malformed")
		return nil
	}

	logger := e.logger.With("event_key", eventKey)

	if !ref.BelongsTo(e.instanceID) {
		e.metrics.NotificationIgnored("foreign_scope")
		logger.Debug("event belongs to another instance", "scope", ref.Scope)
		return nil
	}

	handler := e.currentHandler()
	if handler == nil {
		return fmt.Errorf("%w: %s", ErrNoHandler, eventKey)
	}

	payload, err := e.loadPayload(ctx, eventKey)
	if err != nil {
		return err
	}

	e.metrics.EventFired(string(domain.SourceExpiry))
	logger.Debug("event expired", "event", ref.Name)

	handler(ctx, domain.FiredEvent{
		Key:      eventKey,
		EventRef: ref,
		Source:   domain.SourceExpiry,
		Payload:  payload,
		FiredAt:  e.now(),
	})
	return nil
}

// loadPayload читает ключ данных события.
//
// Ошибка хранилища не фатальна: событие доставляется без payload.
func (e *Expiry) loadPayload(ctx context.Context, eventKey string) (json.RawMessage, error) {
	dataKey, err := keys.DataKeyFor(eventKey)
	if err != nil {
		return nil, nil
	}

	raw, ok, err := e.store.Get(ctx, dataKey)
	if err != nil {
		e.metrics.StoreError("get")
		e.logger.Warn("failed to load event data", "data_key", dataKey, "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeserialization, dataKey, err)
	}
	return payload, nil
}
