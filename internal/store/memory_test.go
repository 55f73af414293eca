package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestMemory_TTLAndExpiredNotification(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)

	sub, err := m.Subscribe(ctx, RoleExpiry, ExpiredChannel(0))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	err = m.WriteEvent(ctx, EventWrite{
		EventKey: "redular:a:test:1",
		Owner:    "a",
		EventTTL: 5 * time.Second,
		DataKey:  "redular-data:a:test:1",
		Data:     []byte(`{"x":1}`),
		DataTTL:  35 * time.Second,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	ms, err := m.PExpireTime(ctx, "redular:a:test:1")
	if err != nil {
		t.Fatalf("pexpiretime: %v", err)
	}
	if ms != epoch.Add(5*time.Second).UnixMilli() {
		t.Errorf("unexpected expiry %d", ms)
	}

	m.Advance(4 * time.Second)
	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected early notification %v", msg)
	default:
	}

	m.Advance(time.Second)
	select {
	case msg := <-sub.Messages():
		if msg.Payload != "redular:a:test:1" {
			t.Errorf("unexpected expired key %q", msg.Payload)
		}
		if msg.Channel != "__keyevent@0__:expired" {
			t.Errorf("unexpected channel %q", msg.Channel)
		}
	default:
		t.Fatal("expected expired notification")
	}

	if ok, _ := m.Exists(ctx, "redular:a:test:1"); ok {
		t.Error("event key should be gone")
	}
	if ok, _ := m.Exists(ctx, "redular-data:a:test:1"); !ok {
		t.Error("data key should outlive event key")
	}

	ms, _ = m.PExpireTime(ctx, "redular:a:test:1")
	if ms != NoKey {
		t.Errorf("expected NoKey, got %d", ms)
	}
}

func TestMemory_PExpireTimeWithoutTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)
	m.SetRaw("plain", []byte("v"), 0)

	ms, err := m.PExpireTime(ctx, "plain")
	if err != nil {
		t.Fatalf("pexpiretime: %v", err)
	}
	if ms != NoExpiry {
		t.Errorf("expected NoExpiry, got %d", ms)
	}
}

func TestMemory_Fail(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)
	boom := errors.New("boom")

	m.Fail("get", boom)
	if _, _, err := m.Get(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}

	m.Fail("get", nil)
	if _, _, err := m.Get(ctx, "x"); err != nil {
		t.Errorf("unexpected error after clearing failure: %v", err)
	}
}

func TestMemory_PublishSubscribe(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)

	sub, err := m.Subscribe(ctx, RoleInstant, "redular:instant")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := m.Publish(ctx, "redular:instant", []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := m.Publish(ctx, "other", []byte("ignored")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg := <-sub.Messages()
	if msg.Payload != "hello" {
		t.Errorf("unexpected payload %q", msg.Payload)
	}

	sub.Close()
	if _, ok := <-sub.Messages(); ok {
		t.Error("messages channel should be closed after Close")
	}

	// После Close публикация не паникует
	if err := m.Publish(ctx, "redular:instant", []byte("late")); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestCursor_TerminatesAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)
	m.ScanOverlap = 2

	for i := 0; i < 250; i++ {
		m.SetRaw(fmt.Sprintf("redular:a:test:%03d", i), []byte("a"), time.Minute)
	}
	m.SetRaw("redular-data:a:test:000", []byte("{}"), time.Minute)

	cur := NewCursor(m, "redular:*", 100)
	total := 0
	for !cur.Done() {
		keys, err := cur.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		total += len(keys)
	}
	if cur.Pages() != 3 {
		t.Errorf("expected 3 pages, got %d", cur.Pages())
	}
	if total <= 250 {
		t.Errorf("overlap should make the raw scan revisit keys, got %d", total)
	}

	keys, err := ScanAll(ctx, m, "redular:*")
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}
	if len(keys) != 250 {
		t.Errorf("expected 250 unique keys, got %d", len(keys))
	}
}

func TestCursor_Error(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)
	m.SetRaw("redular:a:test:1", []byte("a"), time.Minute)
	m.Fail("scan", errors.New("connection reset"))

	if _, err := ScanAll(ctx, m, "redular:*"); err == nil {
		t.Error("expected scan error")
	}
}

func TestCursor_Empty(t *testing.T) {
	keys, err := ScanAll(context.Background(), NewMemory(epoch), "redular:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestMemory_WriteEventWithoutDataRefreshesDataTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)

	m.SetRaw("redular-data:a:test:1", []byte(`{"x":1}`), time.Hour)

	err := m.WriteEvent(ctx, EventWrite{
		EventKey: "redular:a:test:1",
		Owner:    "a",
		EventTTL: 5 * time.Second,
		DataKey:  "redular-data:a:test:1",
		DataTTL:  35 * time.Second,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	if ttl, ok := m.TTL("redular-data:a:test:1"); !ok || ttl != 35*time.Second {
		t.Errorf("expected data ttl 35s, got %v (found=%v)", ttl, ok)
	}
	if v, ok, _ := m.Get(ctx, "redular-data:a:test:1"); !ok || string(v) != `{"x":1}` {
		t.Errorf("data value should be kept, got %q", v)
	}

	// Отсутствующий ключ данных не создаётся
	err = m.WriteEvent(ctx, EventWrite{
		EventKey: "redular:a:test:2",
		Owner:    "a",
		EventTTL: 5 * time.Second,
		DataKey:  "redular-data:a:test:2",
		DataTTL:  35 * time.Second,
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if m.Has("redular-data:a:test:2") {
		t.Error("missing data key must not be created")
	}
}

func TestMemory_CloseEndsSubscriptionsAndOperations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(epoch)

	sub, err := m.Subscribe(ctx, RoleInstant, "redular:instant")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	if _, ok := <-sub.Messages(); ok {
		t.Error("subscription channel should be closed")
	}
	if _, _, err := m.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("get: expected ErrClosed, got %v", err)
	}
	if _, err := m.Subscribe(ctx, RoleExpiry, ExpiredChannel(0)); !errors.Is(err, ErrClosed) {
		t.Errorf("subscribe: expected ErrClosed, got %v", err)
	}
}

func TestClosedErr(t *testing.T) {
	if err := closedErr(fmt.Errorf("wrapped: %w", redis.ErrClosed)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	other := errors.New("timeout")
	if err := closedErr(other); err != other {
		t.Errorf("expected error to pass through, got %v", err)
	}
}
