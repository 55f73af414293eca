package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/store"
	"github.com/shaiso/redular/internal/telemetry"
)

// pruneConcurrency — сколько пар ключей PruneData удаляет одновременно.
const pruneConcurrency = 16

// Options — параметры Schedule.
type Options struct {
	// Global — событие получит любой инстанс, а не только этот.
	Global bool

	// Payload — данные события. Кодируется в JSON.
	// json.RawMessage и []byte записываются как есть (должны быть валидным JSON).
	Payload any

	// ID — id события. Если пустой, генерируется. Повторный Schedule
	// с тем же id перезаписывает событие.
	ID string
}

// Schedule планирует событие name на момент at.
//
// Задержка округляется вниз до целых секунд. Если она не положительна,
// событие не планируется: (zero, false, nil). Ошибка хранилища тоже
// даёт (zero, false, nil) и пишется в лог. Ошибка кодирования payload
// возвращается как ErrSerialization, некорректные name/id как
// keys.ErrMalformedKey.
func (s *Scheduler) Schedule(ctx context.Context, name string, at time.Time, opts Options) (domain.EventKeys, bool, error) {
	ttl := at.Sub(s.now()).Truncate(time.Second)
	if ttl <= 0 {
		s.metrics.EventNotScheduled()
		s.logger.Debug("event not scheduled: time is in the past", "event", name, "at", at)
		return domain.EventKeys{}, false, nil
	}

	pair, err := s.codec.MakeKeys(name, opts.Global, opts.ID)
	if err != nil {
		return domain.EventKeys{}, false, err
	}

	data, err := encodePayload(opts.Payload)
	if err != nil {
		return domain.EventKeys{}, false, err
	}

	w := store.EventWrite{
		EventKey: pair.Event,
		Owner:    s.id,
		EventTTL: ttl,
		DataKey:  pair.Data,
		Data:     data,
		DataTTL:  ttl + s.dataExpiry,
	}

	logger := telemetry.WithEventKey(s.logger, pair.Event)

	if err := s.store.WriteEvent(ctx, w); err != nil {
		s.metrics.StoreError("write")
		s.metrics.EventNotScheduled()
		logger.Error("failed to schedule event", "error", err)
		return domain.EventKeys{}, false, nil
	}

	s.metrics.EventScheduled(scopeLabel(opts.Global))
	logger.Debug("event scheduled", "ttl", ttl, "has_data", data != nil)
	return pair, true, nil
}

// DeleteEvent удаляет ключ события и его ключ данных.
//
// Возвращает true, если запрос удаления выполнен (даже если ключей уже нет).
func (s *Scheduler) DeleteEvent(ctx context.Context, eventKey string) bool {
	if err := s.deletePair(ctx, eventKey); err != nil {
		s.logger.Warn("failed to delete event", "event_key", eventKey, "error", err)
		return false
	}

	s.metrics.EventDeleted()
	return true
}

func (s *Scheduler) deletePair(ctx context.Context, eventKey string) error {
	dataKey, err := keys.DataKeyFor(eventKey)
	if err != nil {
		return err
	}

	if _, err := s.store.Del(ctx, eventKey, dataKey); err != nil {
		s.metrics.StoreError("del")
		return err
	}
	return nil
}

// PruneData удаляет ключи данных, у которых больше нет ключа события.
//
// Такие ключи остаются после срабатывания события: ключ данных живёт
// дольше на DataExpiry. Удаление идёт параллельно; ошибка удаления
// отдельной пары не прерывает остальные. false — если не удалось
// перечислить ключи или проверить их наличие.
func (s *Scheduler) PruneData(ctx context.Context) bool {
	dataKeys, err := store.ScanAll(ctx, s.store, keys.DataPattern)
	if err != nil {
		s.metrics.StoreError("scan")
		s.logger.Error("prune: failed to scan data keys", "error", err)
		return false
	}

	var orphans []string
	for _, dataKey := range dataKeys {
		// Ключи под префиксом, но не нашего формата, не трогаем
		if _, err := keys.DecodeData(dataKey); err != nil {
			continue
		}
		eventKey, err := keys.EventKeyFor(dataKey)
		if err != nil {
			continue
		}

		exists, err := s.store.Exists(ctx, eventKey)
		if err != nil {
			s.metrics.StoreError("exists")
			s.logger.Error("prune: failed to check event key", "event_key", eventKey, "error", err)
			return false
		}
		if !exists {
			orphans = append(orphans, eventKey)
		}
	}

	var (
		g      errgroup.Group
		pruned atomic.Int64
	)
	g.SetLimit(pruneConcurrency)

	for _, eventKey := range orphans {
		g.Go(func() error {
			if err := s.deletePair(ctx, eventKey); err != nil {
				s.logger.Warn("prune: failed to delete data", "event_key", eventKey, "error", err)
				return nil
			}
			pruned.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s.metrics.DataPruned(int(pruned.Load()))
	s.logger.Debug("prune finished", "scanned", len(dataKeys), "pruned", pruned.Load())
	return true
}

// ListEvents возвращает ключи событий, срабатывающих в [start, end],
// отсортированные по времени срабатывания.
//
// Ключи, исчезнувшие во время обхода, и ключи без TTL пропускаются.
func (s *Scheduler) ListEvents(ctx context.Context, start, end time.Time) ([]string, error) {
	candidates, err := store.ScanAll(ctx, s.store, keys.EventPattern)
	if err != nil {
		s.metrics.StoreError("scan")
		return nil, fmt.Errorf("scan events: %w", err)
	}

	type hit struct {
		key string
		at  time.Time
	}

	hits := make([]hit, 0, len(candidates))
	for _, key := range candidates {
		if !keys.IsEventKey(key) {
			continue
		}

		at, ok := s.GetEventExpiry(ctx, key)
		if !ok {
			continue
		}
		if at.Before(start) || at.After(end) {
			continue
		}
		hits = append(hits, hit{key: key, at: at})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].at.Equal(hits[j].at) {
			return hits[i].key < hits[j].key
		}
		return hits[i].at.Before(hits[j].at)
	})

	result := make([]string, len(hits))
	for i, h := range hits {
		result[i] = h.key
	}
	return result, nil
}

// GetEvents — ListEvents, возвращающий пустой список при ошибке хранилища.
func (s *Scheduler) GetEvents(ctx context.Context, start, end time.Time) []string {
	result, err := s.ListEvents(ctx, start, end)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		return []string{}
	}
	return result
}

// GetEventExpiry возвращает абсолютное время срабатывания события.
// ok=false, если ключа нет, у него нет TTL или хранилище вернуло ошибку.
func (s *Scheduler) GetEventExpiry(ctx context.Context, eventKey string) (time.Time, bool) {
	ms, err := s.store.PExpireTime(ctx, eventKey)
	if err != nil {
		s.metrics.StoreError("pexpiretime")
		s.logger.Warn("failed to read event expiry", "event_key", eventKey, "error", err)
		return time.Time{}, false
	}
	if ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// InstantEvent публикует событие в канал мгновенных событий.
//
// Ничего не пишет в хранилище. Ошибка публикации даёт (false, nil),
// ошибка кодирования payload — ErrSerialization.
func (s *Scheduler) InstantEvent(ctx context.Context, name string, global bool, payload any) (bool, error) {
	data, err := encodePayload(payload)
	if err != nil {
		return false, err
	}

	body, err := json.Marshal(domain.InstantMessage{
		Event:  name,
		Client: s.codec.Scope(global),
		Data:   data,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	if err := s.store.Publish(ctx, keys.InstantChannel, body); err != nil {
		s.metrics.StoreError("publish")
		s.logger.Error("failed to publish instant event", "event", name, "error", err)
		return false, nil
	}

	s.logger.Debug("instant event published", "event", name, "global", global)
	return true, nil
}

// encodePayload кодирует payload в JSON. nil — нет данных.
func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return rawPayload(p)
	case []byte:
		return rawPayload(p)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

func rawPayload(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if !json.Valid(p) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrSerialization)
	}
	return p, nil
}

func scopeLabel(global bool) string {
	if global {
		return domain.GlobalScope
	}
	return "instance"
}
