package scheduler

import (
	"context"
	"strings"

	"github.com/shaiso/redular/internal/store"
)

// configureNotifications включает в notify-keyspace-events флаги
// E (keyevent-канал) и x (истечение ключей).
//
// Ошибки не фатальны: управляемые Redis часто запрещают CONFIG.
func (s *Scheduler) configureNotifications(ctx context.Context) {
	current, err := s.store.ConfigGet(ctx, store.NotifyKeyspaceEvents)
	if err != nil {
		s.metrics.StoreError("config")
		s.logger.Warn("auto config: failed to read notify-keyspace-events", "error", err)
		return
	}

	updated := withNotifyFlags(current)
	if updated == current {
		s.logger.Debug("auto config: notifications already enabled", "value", current)
		return
	}

	if err := s.store.ConfigSet(ctx, store.NotifyKeyspaceEvents, updated); err != nil {
		s.metrics.StoreError("config")
		s.logger.Warn("auto config: failed to set notify-keyspace-events", "value", updated, "error", err)
		return
	}

	s.logger.Info("auto config: notify-keyspace-events updated", "from", current, "to", updated)
}

// withNotifyFlags добавляет к значению notify-keyspace-events флаги E и x.
// Флаг A уже включает x.
func withNotifyFlags(value string) string {
	if !strings.Contains(value, "E") {
		value += "E"
	}
	if !strings.ContainsAny(value, "xA") {
		value += "x"
	}
	return value
}
