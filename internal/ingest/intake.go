package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/mq"
	"github.com/shaiso/redular/internal/scheduler"
)

const defaultPrefetch = 10

// Scheduler — операции планировщика, которые выполняют команды.
type Scheduler interface {
	Schedule(ctx context.Context, name string, at time.Time, opts scheduler.Options) (domain.EventKeys, bool, error)
	DeleteEvent(ctx context.Context, eventKey string) bool
	InstantEvent(ctx context.Context, name string, global bool, payload any) (bool, error)
}

// Intake потребляет очередь redular.commands и применяет команды.
type Intake struct {
	sched    Scheduler
	conn     *mq.Connection
	prefetch int
	logger   *slog.Logger

	consumer   *mq.Consumer
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Intake.
type Config struct {
	Scheduler Scheduler
	Conn      *mq.Connection

	// Prefetch — количество сообщений для предварительной загрузки (default: 10).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Intake.
func New(cfg Config) *Intake {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Intake{
		sched:    cfg.Scheduler,
		conn:     cfg.Conn,
		prefetch: prefetch,
		logger:   logger.With("component", "ingest"),
	}
}

// Start запускает consumer очереди команд в фоне.
func (i *Intake) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	i.cancelFunc = cancel

	i.consumer = mq.NewConsumer(i.conn, i.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueCommands),
		Handler:  i.HandleDelivery,
		Prefetch: i.prefetch,
	})

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := i.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			i.logger.Error("command consumer error", "error", err)
		}
	}()

	i.logger.Info("intake started", "queue", mq.QueueCommands, "prefetch", i.prefetch)
	return nil
}

// Stop останавливает consumer и ждёт его завершения.
func (i *Intake) Stop() {
	if i.cancelFunc != nil {
		i.cancelFunc()
	}
	if i.consumer != nil {
		i.consumer.Stop()
	}
	i.wg.Wait()

	i.logger.Info("intake stopped")
}

// HandleDelivery применяет одну команду. Используется как mq.Handler.
func (i *Intake) HandleDelivery(ctx context.Context, delivery *mq.Delivery) error {
	msg := &delivery.Message

	var err error
	switch msg.Type {
	case mq.MessageTypeCommandSchedule:
		err = i.handleSchedule(ctx, msg)
	case mq.MessageTypeCommandDelete:
		err = i.handleDelete(ctx, msg)
	case mq.MessageTypeCommandInstant:
		err = i.handleInstant(ctx, msg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}

	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotApplied) {
		return err
	}
	return fmt.Errorf("%w: %w", mq.ErrReject, err)
}

// handleSchedule выполняет command.schedule.
//
// Время в прошлом — не ошибка: команда подтверждается, событие не планируется.
func (i *Intake) handleSchedule(ctx context.Context, msg *mq.Message) error {
	cmd, err := mq.ParsePayload[mq.SchedulePayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if cmd.Name == "" || cmd.At.IsZero() {
		return fmt.Errorf("%w: name and at are required", ErrInvalidCommand)
	}

	opts := scheduler.Options{Global: cmd.Global, ID: cmd.ID}
	if len(cmd.Payload) > 0 {
		opts.Payload = cmd.Payload
	}

	pair, ok, err := i.sched.Schedule(ctx, cmd.Name, cmd.At, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !ok {
		i.logger.Warn("scheduled command not applied", "message_id", msg.ID, "event", cmd.Name, "at", cmd.At)
		return nil
	}

	i.logger.Debug("event scheduled from command", "message_id", msg.ID, "event_key", pair.Event)
	return nil
}

// handleDelete выполняет command.delete.
func (i *Intake) handleDelete(ctx context.Context, msg *mq.Message) error {
	cmd, err := mq.ParsePayload[mq.DeletePayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !keys.IsEventKey(cmd.EventKey) {
		return fmt.Errorf("%w: bad event key %q", ErrInvalidCommand, cmd.EventKey)
	}

	if !i.sched.DeleteEvent(ctx, cmd.EventKey) {
		return fmt.Errorf("%w: delete %s", ErrNotApplied, cmd.EventKey)
	}

	i.logger.Debug("event deleted from command", "message_id", msg.ID, "event_key", cmd.EventKey)
	return nil
}

// handleInstant выполняет command.instant.
func (i *Intake) handleInstant(ctx context.Context, msg *mq.Message) error {
	cmd, err := mq.ParsePayload[mq.InstantPayload](msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if cmd.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCommand)
	}

	var payload any
	if len(cmd.Payload) > 0 {
		payload = cmd.Payload
	}

	ok, err := i.sched.InstantEvent(ctx, cmd.Name, cmd.Global, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if !ok {
		return fmt.Errorf("%w: instant %s", ErrNotApplied, cmd.Name)
	}
	return nil
}
