package repo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/redular/internal/domain"
)

func TestJournalFilter_Normalize(t *testing.T) {
	f, err := JournalFilter{}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Limit != DefaultJournalLimit {
		t.Errorf("expected default limit, got %d", f.Limit)
	}

	f, _ = JournalFilter{Limit: 10000}.Normalize()
	if f.Limit != MaxJournalLimit {
		t.Errorf("expected max limit, got %d", f.Limit)
	}

	if _, err := (JournalFilter{Offset: -1}).Normalize(); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter for negative offset, got %v", err)
	}
	if _, err := (JournalFilter{Source: "cron"}).Normalize(); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter for unknown source, got %v", err)
	}
	if _, err := (JournalFilter{Source: domain.SourceInstant}).Normalize(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewPool_EmptyDSN(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); !errors.Is(err, ErrNoDSN) {
		t.Errorf("expected ErrNoDSN, got %v", err)
	}
}

// TestJournalRepo_RecordAndList запускается только с REDULAR_TEST_DB_URL.
func TestJournalRepo_RecordAndList(t *testing.T) {
	dsn := os.Getenv("REDULAR_TEST_DB_URL")
	if dsn == "" {
		t.Skip("REDULAR_TEST_DB_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Close()

	repo := NewJournalRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// Повторный вызов не ломается
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema (again): %v", err)
	}

	name := "journal-test-" + uuid.NewString()
	firedAt := time.Now().UTC().Truncate(time.Millisecond)

	events := []domain.FiredEvent{
		{
			Key:      "redular:global:" + name + ":x",
			EventRef: domain.EventRef{Scope: "global", Name: name, ID: "x"},
			Source:   domain.SourceExpiry,
			Payload:  json.RawMessage(`{"a":1}`),
			FiredAt:  firedAt,
		},
		{
			EventRef: domain.EventRef{Scope: "inst1", Name: name},
			Source:   domain.SourceInstant,
			FiredAt:  firedAt.Add(time.Second),
		},
	}
	for _, ev := range events {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := repo.List(ctx, JournalFilter{Name: name})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	// Новые первыми
	if all[0].Source != domain.SourceInstant || all[0].Key != "" || all[0].Payload != nil {
		t.Errorf("unexpected first entry %+v", all[0])
	}
	if all[1].Key != events[0].Key || all[1].EventID != "x" || !all[1].FiredAt.Equal(firedAt) {
		t.Errorf("unexpected second entry %+v", all[1])
	}

	expiries, err := repo.List(ctx, JournalFilter{Name: name, Source: domain.SourceExpiry})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(expiries) != 1 {
		t.Errorf("expected 1 expiry entry, got %d", len(expiries))
	}
}
