package store

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// Memory — Store в памяти процесса с управляемыми часами.
//
// Повторяет семантику Redis, важную планировщику: TTL, PEXPIRETIME,
// SCAN с курсором (0 — конец обхода), pub/sub и уведомления
// __keyevent@<db>__:expired. Ключи истекают при каждом обращении к
// хранилищу и при Advance.
type Memory struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]memEntry
	subs    map[string][]*memSubscription
	config  map[string]string
	failing map[string]error
	db      int
	closed  bool

	// ScanOverlap — сколько ключей предыдущей страницы SCAN повторить
	// в начале следующей (имитация повторной выдачи ключей Redis).
	ScanOverlap int
}

type memEntry struct {
	value    []byte
	expireAt time.Time
}

// NewMemory создаёт пустое хранилище с часами, выставленными на start.
func NewMemory(start time.Time) *Memory {
	return &Memory{
		now:     start,
		entries: make(map[string]memEntry),
		subs:    make(map[string][]*memSubscription),
		config:  make(map[string]string),
		failing: make(map[string]error),
	}
}

// Now возвращает текущее время часов хранилища.
func (m *Memory) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance сдвигает часы на d и истекает просроченные ключи.
func (m *Memory) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	pending := m.sweepLocked()
	m.mu.Unlock()
	m.deliver(pending)
}

// Fail заставляет операцию op ("write", "get", "del", "exists", "scan",
// "pexpiretime", "publish", "subscribe", "config") возвращать err.
// err == nil снимает сбой.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, op)
		return
	}
	m.failing[op] = err
}

// SetRaw записывает ключ напрямую. ttl == 0 — без срока жизни.
func (m *Memory) SetRaw(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl)
}

// Has проверяет наличие ключа без истечения просроченных.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Keys возвращает отсортированный список ключей под шаблоном match.
func (m *Memory) Keys(match string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchLocked(match)
}

// TTL возвращает оставшийся срок жизни ключа. ok=false, если ключа нет
// или срок не задан.
func (m *Memory) TTL(key string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.expireAt.IsZero() {
		return 0, false
	}
	return e.expireAt.Sub(m.now), true
}

// DB возвращает номер базы данных.
func (m *Memory) DB() int {
	return m.db
}

// WriteEvent записывает пару ключей атомарно.
func (m *Memory) WriteEvent(ctx context.Context, w EventWrite) error {
	if err := m.begin(ctx, "write"); err != nil {
		return err
	}
	m.mu.Lock()
	if w.Data != nil {
		m.setLocked(w.DataKey, w.Data, w.DataTTL)
	} else if w.DataTTL > 0 {
		m.expireLocked(w.DataKey, w.DataTTL)
	}
	m.setLocked(w.EventKey, []byte(w.Owner), w.EventTTL)
	m.mu.Unlock()
	return nil
}

// Get возвращает значение ключа.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := m.begin(ctx, "get"); err != nil {
		return nil, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Del удаляет ключи.
func (m *Memory) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := m.begin(ctx, "del"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := m.entries[key]; ok {
			delete(m.entries, key)
			n++
		}
	}
	return n, nil
}

// Exists проверяет наличие ключа.
func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.begin(ctx, "exists"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok, nil
}

// Scan отдаёт страницы отсортированных ключей. Курсор — смещение + 1.
func (m *Memory) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if err := m.begin(ctx, "scan"); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.matchLocked(match)
	if count <= 0 {
		count = defaultScanCount
	}

	start := 0
	if cursor > 0 {
		start = int(cursor) - 1 - m.ScanOverlap
		if start < 0 {
			start = 0
		}
	}
	if start >= len(all) {
		return nil, 0, nil
	}

	end := start + int(count)
	if cursor > 0 {
		end = int(cursor) - 1 + int(count)
	}
	if end >= len(all) {
		return append([]string(nil), all[start:]...), 0, nil
	}
	return append([]string(nil), all[start:end]...), uint64(end) + 1, nil
}

// PExpireTime возвращает время истечения в миллисекундах Unix.
func (m *Memory) PExpireTime(ctx context.Context, key string) (int64, error) {
	if err := m.begin(ctx, "pexpiretime"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return NoKey, nil
	}
	if e.expireAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expireAt.UnixMilli(), nil
}

// Publish доставляет сообщение подписчикам канала.
func (m *Memory) Publish(ctx context.Context, channel string, message []byte) error {
	if err := m.begin(ctx, "publish"); err != nil {
		return err
	}
	m.deliver([]Message{{Channel: channel, Payload: string(message)}})
	return nil
}

// Subscribe подписывается на канал. role игнорируется.
func (m *Memory) Subscribe(ctx context.Context, _ Role, channel string) (Subscription, error) {
	if err := m.begin(ctx, "subscribe"); err != nil {
		return nil, err
	}
	sub := &memSubscription{
		store:   m,
		channel: channel,
		out:     make(chan Message, 256),
	}
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()
	return sub, nil
}

// ConfigGet читает параметр конфигурации.
func (m *Memory) ConfigGet(ctx context.Context, param string) (string, error) {
	if err := m.begin(ctx, "config"); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config[param], nil
}

// ConfigSet меняет параметр конфигурации.
func (m *Memory) ConfigSet(ctx context.Context, param, value string) error {
	if err := m.begin(ctx, "config"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config[param] = value
	return nil
}

// Close закрывает хранилище и все подписки. Дальнейшие операции
// возвращают ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var subs []*memSubscription
	for _, list := range m.subs {
		subs = append(subs, list...)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

// begin проверяет контекст и сбои, истекает просроченные ключи.
func (m *Memory) begin(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if err, ok := m.failing[op]; ok {
		m.mu.Unlock()
		return err
	}
	pending := m.sweepLocked()
	m.mu.Unlock()
	m.deliver(pending)
	return nil
}

func (m *Memory) setLocked(key string, value []byte, ttl time.Duration) {
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = m.now.Add(ttl)
	}
	m.entries[key] = e
}

// expireLocked меняет TTL существующего ключа. Отсутствующий ключ не создаётся.
func (m *Memory) expireLocked(key string, ttl time.Duration) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.expireAt = m.now.Add(ttl)
	m.entries[key] = e
}

// sweepLocked удаляет истёкшие ключи и возвращает уведомления о них.
func (m *Memory) sweepLocked() []Message {
	var expired []string
	for key, e := range m.entries {
		if !e.expireAt.IsZero() && !m.now.Before(e.expireAt) {
			expired = append(expired, key)
		}
	}
	if len(expired) == 0 {
		return nil
	}

	// Порядок уведомлений — по времени истечения, затем по ключу.
	sort.Slice(expired, func(i, j int) bool {
		a, b := m.entries[expired[i]].expireAt, m.entries[expired[j]].expireAt
		if a.Equal(b) {
			return expired[i] < expired[j]
		}
		return a.Before(b)
	})

	channel := ExpiredChannel(m.db)
	msgs := make([]Message, 0, len(expired))
	for _, key := range expired {
		delete(m.entries, key)
		msgs = append(msgs, Message{Channel: channel, Payload: key})
	}
	return msgs
}

func (m *Memory) matchLocked(match string) []string {
	var keys []string
	for key := range m.entries {
		if ok, _ := path.Match(match, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) deliver(msgs []Message) {
	for _, msg := range msgs {
		m.mu.Lock()
		subs := append([]*memSubscription(nil), m.subs[msg.Channel]...)
		m.mu.Unlock()

		for _, sub := range subs {
			sub.send(msg)
		}
	}
}

func (m *Memory) unsubscribe(sub *memSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[sub.channel]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

type memSubscription struct {
	store   *Memory
	channel string

	mu     sync.Mutex
	out    chan Message
	closed bool
}

func (s *memSubscription) send(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
		// Буфер переполнен — как и Redis, медленный подписчик теряет сообщения.
	}
}

func (s *memSubscription) Messages() <-chan Message {
	return s.out
}

func (s *memSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.out)
	s.mu.Unlock()

	s.store.unsubscribe(s)
	return nil
}
