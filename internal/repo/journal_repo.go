package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/redular/internal/domain"
)

// Ограничения выборки журнала.
const (
	DefaultJournalLimit = 50
	MaxJournalLimit     = 500
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS fired_events (
		id          BIGSERIAL PRIMARY KEY,
		event_key   TEXT,
		scope       TEXT        NOT NULL,
		name        TEXT        NOT NULL,
		event_id    TEXT,
		source      TEXT        NOT NULL,
		payload     JSONB,
		fired_at    TIMESTAMPTZ NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS fired_events_name_fired_at_idx ON fired_events (name, fired_at DESC);
`

// JournalEntry — запись журнала.
type JournalEntry struct {
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

// JournalFilter — параметры выборки журнала.
type JournalFilter struct {
	Name   string
	Source domain.Source
	Limit  int
	Offset int
}

// Normalize применяет лимиты по умолчанию и проверяет фильтр.
func (f JournalFilter) Normalize() (JournalFilter, error) {
	if f.Offset < 0 {
		return f, fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	switch f.Source {
	case "", domain.SourceExpiry, domain.SourceInstant:
	default:
		return f, fmt.Errorf("%w: unknown source %q", ErrInvalidFilter, f.Source)
	}

	if f.Limit <= 0 {
		f.Limit = DefaultJournalLimit
	}
	f.Limit = min(f.Limit, MaxJournalLimit)
	return f, nil
}

// JournalRepo — журнал сработавших событий.
type JournalRepo struct {
	pool *pgxpool.Pool
}

// NewJournalRepo создаёт новый JournalRepo.
func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// EnsureSchema создаёт таблицу журнала, если её нет.
func (r *JournalRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Record сохраняет сработавшее событие.
func (r *JournalRepo) Record(ctx context.Context, ev domain.FiredEvent) error {
	query := `
		INSERT INTO fired_events (event_key, scope, name, event_id, source, payload, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		nullString(ev.Key),
		ev.Scope,
		ev.Name,
		nullString(ev.ID),
		string(ev.Source),
		nullJSON(ev.Payload),
		ev.FiredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert fired event: %w", err)
	}
	return nil
}

// List возвращает записи журнала, новые первыми.
func (r *JournalRepo) List(ctx context.Context, filter JournalFilter) ([]JournalEntry, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, event_key, scope, name, event_id, source, payload, fired_at, recorded_at
		FROM fired_events
		WHERE ($1::text IS NULL OR name = $1)
		  AND ($2::text IS NULL OR source = $2)
		ORDER BY fired_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Name),
		nullString(string(filter.Source)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list fired events: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		entry, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// --- Helpers ---

func scanJournalEntry(row pgx.Row) (JournalEntry, error) {
	var (
		e       JournalEntry
		key     *string
		eventID *string
		source  string
		payload []byte
	)

	err := row.Scan(
		&e.ID,
		&key,
		&e.Scope,
		&e.Name,
		&eventID,
		&source,
		&payload,
		&e.FiredAt,
		&e.RecordedAt,
	)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("scan fired event: %w", err)
	}

	if key != nil {
		e.Key = *key
	}
	if eventID != nil {
		e.EventID = *eventID
	}
	e.Source = domain.Source(source)
	if payload != nil {
		e.Payload = json.RawMessage(payload)
	}
	return e, nil
}

// nullString возвращает nil для пустой строки.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON возвращает nil для пустого payload.
func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
