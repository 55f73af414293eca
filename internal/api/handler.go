package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/repo"
	"github.com/shaiso/redular/internal/scheduler"
)

// Scheduler — операции планировщика, доступные через API.
type Scheduler interface {
	ClientID() string
	Handlers() []string
	Schedule(ctx context.Context, name string, at time.Time, opts scheduler.Options) (domain.EventKeys, bool, error)
	DeleteEvent(ctx context.Context, eventKey string) bool
	ListEvents(ctx context.Context, start, end time.Time) ([]string, error)
	GetEventExpiry(ctx context.Context, eventKey string) (time.Time, bool)
	InstantEvent(ctx context.Context, name string, global bool, payload any) (bool, error)
	PruneData(ctx context.Context) bool
}

// Journal — чтение журнала сработавших событий.
type Journal interface {
	List(ctx context.Context, filter repo.JournalFilter) ([]repo.JournalEntry, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	sched   Scheduler
	journal Journal
	now     func() time.Time
	logger  *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Scheduler Scheduler

	// Journal — необязателен; без него /history отвечает 503.
	Journal Journal

	// Now — источник времени для значений по умолчанию (default: time.Now).
	Now func() time.Time

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Handler{
		sched:   cfg.Scheduler,
		journal: cfg.Journal,
		now:     now,
		logger:  logger,
	}
}
