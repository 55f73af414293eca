package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/redular/internal/store"
)

func TestWithNotifyFlags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Ex"},
		{"Ex", "Ex"},
		{"K", "KEx"},
		{"AKE", "AKE"},
		{"xE", "xE"},
		{"Kg", "KgEx"},
	}

	for _, tt := range tests {
		if got := withNotifyFlags(tt.in); got != tt.want {
			t.Errorf("withNotifyFlags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStart_AutoConfig(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(epoch)

	s, err := New(Config{Store: m, InstanceID: "inst1", AutoConfig: true, Now: m.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startScheduler(t, s)

	got, _ := m.ConfigGet(ctx, store.NotifyKeyspaceEvents)
	if got != "Ex" {
		t.Errorf("expected notify-keyspace-events=Ex, got %q", got)
	}
}

func TestStart_AutoConfigFailureIsNotFatal(t *testing.T) {
	m := store.NewMemory(epoch)
	m.Fail("config", errors.New("unknown command CONFIG"))

	s, err := New(Config{Store: m, InstanceID: "inst1", AutoConfig: true, Now: m.Now})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	startScheduler(t, s)
}
