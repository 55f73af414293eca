package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/handlers"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/listener"
	"github.com/shaiso/redular/internal/store"
	"github.com/shaiso/redular/internal/telemetry"
)

// Default configuration values.
const (
	defaultDataExpiry = 30 * time.Second
	defaultQueueSize  = 256
)

// Journal сохраняет историю сработавших событий.
type Journal interface {
	Record(ctx context.Context, ev domain.FiredEvent) error
}

// Relay пересылает сработавшие события во внешнюю шину.
type Relay interface {
	PublishEventFired(ctx context.Context, ev domain.FiredEvent) error
}

// Scheduler — инстанс планировщика.
//
// Владеет id инстанса, реестром обработчиков и тремя соединениями
// хранилища (через Store). Оба listener'а складывают события в одну
// очередь, обработчики вызываются последовательно одной горутиной.
type Scheduler struct {
	id         string
	codec      *keys.Codec
	store      store.Store
	dataExpiry time.Duration
	autoConfig bool

	registry *handlers.Registry
	journal  Journal
	relay    Relay
	metrics  *telemetry.Metrics
	logger   *slog.Logger
	now      func() time.Time

	expiry  *listener.Expiry
	instant *listener.Instant
	events  chan domain.FiredEvent
	fatal   chan error

	mu         sync.Mutex
	started    bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// InstanceID — id инстанса. Если пустой, генерируется при создании.
	InstanceID string

	// Store — хранилище (обязательно).
	Store store.Store

	// DataExpiry — насколько ключ данных переживает ключ события (default: 30s).
	DataExpiry time.Duration

	// AutoConfig — включить notify-keyspace-events при Start.
	AutoConfig bool

	// Registry — реестр обработчиков (опционально; если nil — создаётся новый).
	Registry *handlers.Registry

	// Journal и Relay — необязательные получатели сработавших событий.
	Journal Journal
	Relay   Relay

	Metrics *telemetry.Metrics
	Logger  *slog.Logger

	// Now — источник времени (default: time.Now).
	Now func() time.Time

	// QueueSize — размер очереди dispatch (default: 256).
	QueueSize int
}

// New создаёт Scheduler. Подписки выполняются в Start.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}

	id := cfg.InstanceID
	if id == "" {
		id = keys.NewID()
	}
	if id == domain.GlobalScope || strings.Contains(id, ":") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}

	dataExpiry := cfg.DataExpiry
	if dataExpiry <= 0 {
		dataExpiry = defaultDataExpiry
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithInstanceID(logger, id)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	registry := cfg.Registry
	if registry == nil {
		registry = handlers.NewRegistry(logger)
	}

	s := &Scheduler{
		id:         id,
		codec:      keys.NewCodec(id),
		store:      cfg.Store,
		dataExpiry: dataExpiry,
		autoConfig: cfg.AutoConfig,
		registry:   registry,
		journal:    cfg.Journal,
		relay:      cfg.Relay,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        now,
		events:     make(chan domain.FiredEvent, queueSize),
		fatal:      make(chan error, 2),
	}

	listenerCfg := listener.Config{
		Store:      cfg.Store,
		InstanceID: id,
		Handler:    s.enqueue,
		Metrics:    cfg.Metrics,
		Logger:     logger,
		Now:        now,
	}
	s.expiry = listener.NewExpiry(listenerCfg)
	s.instant = listener.NewInstant(listenerCfg)

	return s, nil
}

// ClientID возвращает id инстанса.
func (s *Scheduler) ClientID() string {
	return s.id
}

// Start подписывается на уведомления об истечении и на канал мгновенных
// событий и запускает dispatch.
//
// После возврата без ошибки обе подписки активны.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	if s.autoConfig {
		s.configureNotifications(ctx)
	}

	if err := s.expiry.Subscribe(ctx); err != nil {
		return fmt.Errorf("expiry listener: %w", err)
	}
	if err := s.instant.Subscribe(ctx); err != nil {
		if uerr := s.expiry.Unsubscribe(); uerr != nil {
			s.logger.Warn("failed to roll back expiry subscription", "error", uerr)
		}
		return fmt.Errorf("instant listener: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	s.started = true

	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		s.dispatchLoop(ctx)
	}()
	go func() {
		defer s.wg.Done()
		s.runListener(ctx, "expiry", s.expiry.Run)
	}()
	go func() {
		defer s.wg.Done()
		s.runListener(ctx, "instant", s.instant.Run)
	}()

	s.logger.Info("scheduler started",
		"expiry_channel", s.expiry.Channel(),
		"instant_channel", s.instant.Channel(),
		"data_expiry", s.dataExpiry,
	)
	return nil
}

// Stop останавливает listener'ы и dispatch и ждёт их завершения.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.logger.Info("scheduler stopped")
}

// Errors возвращает канал фатальных ошибок listener'ов
// (ErrNoHandler, ErrDeserialization, закрытая подписка).
func (s *Scheduler) Errors() <-chan error {
	return s.fatal
}

func (s *Scheduler) runListener(ctx context.Context, name string, run func(context.Context) error) {
	err := run(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}

	s.logger.Error("listener failed", "listener", name, "error", err)
	select {
	case s.fatal <- fmt.Errorf("%s listener: %w", name, err):
	default:
	}
}

// enqueue передаёт событие из listener'а в очередь dispatch.
func (s *Scheduler) enqueue(ctx context.Context, ev domain.FiredEvent) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// dispatchLoop — единственный контекст выполнения обработчиков.
func (s *Scheduler) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.deliver(ctx, ev)
		}
	}
}

// deliver пишет событие в журнал и relay и вызывает обработчик.
//
// Ошибки журнала и relay не мешают вызову обработчика.
func (s *Scheduler) deliver(ctx context.Context, ev domain.FiredEvent) {
	logger := telemetry.WithEventName(s.logger, ev.Name)

	if s.journal != nil {
		if err := s.journal.Record(ctx, ev); err != nil {
			logger.Warn("failed to record fired event", "error", err)
		}
	}

	if s.relay != nil {
		if err := s.relay.PublishEventFired(ctx, ev); err != nil {
			logger.Warn("failed to relay fired event", "error", err)
		}
	}

	start := time.Now()
	if !s.registry.Dispatch(ctx, ev.Name, ev.Payload) {
		logger.Debug("no handler for event", "source", ev.Source)
		return
	}
	s.metrics.ObserveHandler(ev.Name, time.Since(start))
}

// --- Обработчики ---

// DefineHandler регистрирует обработчик события name.
// Возвращает handlers.ErrDuplicateHandler или handlers.ErrInvalidHandler.
func (s *Scheduler) DefineHandler(name string, fn handlers.Func) (string, error) {
	return s.registry.Define(name, fn)
}

// DeleteHandler удаляет обработчик события name.
func (s *Scheduler) DeleteHandler(name string) {
	s.registry.Remove(name)
}

// DeleteAllHandlers удаляет все обработчики.
func (s *Scheduler) DeleteAllHandlers() {
	s.registry.RemoveAll()
}

// Handlers возвращает имена событий с зарегистрированными обработчиками.
func (s *Scheduler) Handlers() []string {
	return s.registry.Names()
}
