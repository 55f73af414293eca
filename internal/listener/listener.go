package listener

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/store"
	"github.com/shaiso/redular/internal/telemetry"
)

// State — состояние listener'а.
//
//	idle → listening
//
// Переход выполняется один раз в Subscribe и не отменяется.
type State string

const (
	// StateIdle — создан, подписки нет.
	StateIdle State = "idle"

	// StateListening — подписан на канал.
	StateListening State = "listening"
)

// Handler получает события, адресованные этому инстансу.
type Handler func(ctx context.Context, ev domain.FiredEvent)

// Config — общая конфигурация listener'ов.
type Config struct {
	// Store — хранилище. Подписка идёт через соединение своей роли.
	Store store.Store

	// InstanceID — id инстанса; события с другим scope (кроме global) отбрасываются.
	InstanceID string

	// Handler — обработчик событий. Без него совпавшее событие — ErrNoHandler.
	Handler Handler

	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Now — источник времени для FiredAt (default: time.Now).
	Now func() time.Time
}

// base — общая часть Expiry и Instant: подписка, состояние, цикл чтения.
type base struct {
	store      store.Store
	instanceID string
	role       store.Role
	channel    string
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.RWMutex
	handler Handler
	state   State
	sub     store.Subscription
}

func newBase(cfg Config, role store.Role, channel string) *base {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &base{
		store:      cfg.Store,
		instanceID: cfg.InstanceID,
		role:       role,
		channel:    channel,
		metrics:    cfg.Metrics,
		logger:     logger.With("channel", channel),
		now:        now,
		handler:    cfg.Handler,
		state:      StateIdle,
	}
}

// State возвращает текущее состояние.
func (b *base) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Channel возвращает имя канала подписки.
func (b *base) Channel() string {
	return b.channel
}

// Subscribe подписывается на канал: idle → listening.
func (b *base) Subscribe(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateListening {
		return ErrAlreadyListening
	}

	sub, err := b.store.Subscribe(ctx, b.role, b.channel)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	b.sub = sub
	b.state = StateListening
	b.logger.Info("listener subscribed", "role", b.role)
	return nil
}

// Unsubscribe закрывает подписку и возвращает listener в idle.
// Для idle listener'а ничего не делает.
func (b *base) Unsubscribe() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateListening {
		return nil
	}

	sub := b.sub
	b.sub = nil
	b.state = StateIdle
	if err := sub.Close(); err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}
	return nil
}

func (b *base) currentHandler() Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

// run читает сообщения и передаёт их handle до отмены ctx
// или первой фатальной ошибки.
func (b *base) run(ctx context.Context, handle func(context.Context, string) error) error {
	b.mu.RLock()
	sub := b.sub
	b.mu.RUnlock()

	if sub == nil {
		return ErrNotListening
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-sub.Messages():
			if !ok {
				return ErrSubscriptionClosed
			}

			if err := handle(ctx, msg.Payload); err != nil {
				b.logger.Error("listener stopped on fatal error", "error", err)
				return err
			}
		}
	}
}
