package scheduler

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/store"
)

// Тесты против реального Redis. Запускаются только с REDULAR_TEST_REDIS_URL.

func openRedisScheduler(t *testing.T, r *store.Redis) *Scheduler {
	t.Helper()
	s, err := New(Config{Store: r, AutoConfig: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func openTestRedis(t *testing.T) *store.Redis {
	t.Helper()

	url := os.Getenv("REDULAR_TEST_REDIS_URL")
	if url == "" {
		t.Skip("REDULAR_TEST_REDIS_URL not set")
	}

	r, err := store.Open(context.Background(), store.Config{URL: url}, nil)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedis_EventFires(t *testing.T) {
	ctx := context.Background()
	s := openRedisScheduler(t, openTestRedis(t))
	fired := collect(t, s, "test")
	startScheduler(t, s)

	pair, ok, err := s.Schedule(ctx, "test", time.Now().Add(2*time.Second), Options{Payload: map[string]string{"test": "Hello"}})
	if err != nil || !ok {
		t.Fatalf("Schedule: ok=%v err=%v", ok, err)
	}
	defer s.DeleteEvent(ctx, pair.Event)

	at, ok := s.GetEventExpiry(ctx, pair.Event)
	if !ok || at.Before(time.Now()) {
		t.Errorf("unexpected expiry %s (ok=%v)", at, ok)
	}

	select {
	case payload := <-fired:
		if string(payload) != `{"test":"Hello"}` {
			t.Errorf("unexpected payload %s", payload)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event did not fire")
	}
}

func TestRedis_InstantAndPrune(t *testing.T) {
	ctx := context.Background()
	r := openTestRedis(t)

	a := openRedisScheduler(t, r)
	pings := collect(t, a, "ping")
	startScheduler(t, a)

	if ok, err := a.InstantEvent(ctx, "ping", true, nil); err != nil || !ok {
		t.Fatalf("InstantEvent: ok=%v err=%v", ok, err)
	}
	select {
	case <-pings:
	case <-time.After(5 * time.Second):
		t.Fatal("instant event not delivered")
	}

	// Осиротевший ключ данных
	orphan := "redular-data:" + a.ClientID() + ":orphan:" + keys.NewID()
	if err := r.Client(store.RolePrimary).Set(ctx, orphan, "1", time.Minute).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}

	if !a.PruneData(ctx) {
		t.Fatal("PruneData returned false")
	}
	if exists, _ := r.Exists(ctx, orphan); exists {
		t.Error("orphaned data key must be pruned")
	}
}
