package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Имена клиентов в CLIENT LIST.
const (
	clientNamePrimary = "redular"
	clientNameExpiry  = "event-listener"
	clientNameInstant = "instant-listener"
)

// Config — параметры подключения к Redis.
type Config struct {
	// URL — redis://[user:password@]host:port/db или просто host:port.
	URL string

	// Password — пароль. Перекрывает пароль из URL, если задан.
	Password string

	// PingTimeout — таймаут проверки соединения при открытии (default: 5s).
	PingTimeout time.Duration
}

// ConfigFromEnv читает конфигурацию из REDIS_URL и REDIS_PASSWORD.
func ConfigFromEnv() Config {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = DefaultURL()
	}
	return Config{
		URL:      url,
		Password: os.Getenv("REDIS_PASSWORD"),
	}
}

// DefaultURL возвращает URL по умолчанию для локальной разработки.
func DefaultURL() string {
	return "redis://localhost:6379/0"
}

// Redis — Store поверх go-redis с тройкой соединений.
type Redis struct {
	primary *redis.Client
	expiry  *redis.Client
	instant *redis.Client
	db      int
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open подключается к Redis и проверяет соединение.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Redis, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := parseOptions(cfg)
	if err != nil {
		return nil, err
	}

	r := &Redis{
		primary: newClient(base, clientNamePrimary),
		expiry:  newClient(base, clientNameExpiry),
		instant: newClient(base, clientNameInstant),
		db:      base.DB,
		logger:  logger,
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.primary.Ping(pingCtx).Err(); err != nil {
		r.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to Redis", "addr", base.Addr, "db", base.DB)
	return r, nil
}

// parseOptions принимает как URL, так и host:port.
func parseOptions(cfg Config) (*redis.Options, error) {
	var opt *redis.Options
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: cfg.URL}
	}

	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	return opt, nil
}

func newClient(base *redis.Options, name string) *redis.Client {
	opt := *base
	opt.ClientName = name
	return redis.NewClient(&opt)
}

// Client возвращает клиент для роли.
func (r *Redis) Client(role Role) *redis.Client {
	switch role {
	case RoleExpiry:
		return r.expiry
	case RoleInstant:
		return r.instant
	default:
		return r.primary
	}
}

// DB возвращает номер базы данных.
func (r *Redis) DB() int {
	return r.db
}

// WriteEvent записывает пару ключей через MULTI/EXEC.
func (r *Redis) WriteEvent(ctx context.Context, w EventWrite) error {
	_, err := r.primary.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if w.Data != nil {
			p.Set(ctx, w.DataKey, w.Data, w.DataTTL)
		} else if w.DataTTL > 0 {
			// Прежний payload живёт вместе с новым сроком события
			p.Expire(ctx, w.DataKey, w.DataTTL)
		}
		p.Set(ctx, w.EventKey, w.Owner, w.EventTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write event %s: %w", w.EventKey, closedErr(err))
	}
	return nil
}

// Get возвращает значение ключа.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := r.primary.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, closedErr(err))
	}
	return raw, true, nil
}

// Del удаляет ключи одной командой.
func (r *Redis) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := r.primary.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("del: %w", closedErr(err))
	}
	return n, nil
}

// Exists проверяет наличие ключа.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.primary.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, closedErr(err))
	}
	return n > 0, nil
}

// Scan выполняет одну итерацию SCAN.
func (r *Redis) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := r.primary.Scan(ctx, cursor, match, count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("scan %s: %w", match, closedErr(err))
	}
	return keys, next, nil
}

// PExpireTime выполняет PEXPIRETIME (Redis >= 7.0).
func (r *Redis) PExpireTime(ctx context.Context, key string) (int64, error) {
	ms, err := r.primary.Do(ctx, "PEXPIRETIME", key).Int64()
	if err != nil {
		return 0, fmt.Errorf("pexpiretime %s: %w", key, closedErr(err))
	}
	return ms, nil
}

// Publish публикует сообщение.
func (r *Redis) Publish(ctx context.Context, channel string, message []byte) error {
	if err := r.primary.Publish(ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, closedErr(err))
	}
	return nil
}

// Subscribe подписывается на канал и ждёт подтверждения подписки.
func (r *Redis) Subscribe(ctx context.Context, role Role, channel string) (Subscription, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("subscribe %s: %w", channel, ErrClosed)
	}

	ps := r.Client(role).Subscribe(ctx, channel)

	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, closedErr(err))
	}

	r.logger.Debug("subscribed", "channel", channel, "role", role)
	return newRedisSubscription(ps), nil
}

// ConfigGet читает параметр CONFIG GET.
func (r *Redis) ConfigGet(ctx context.Context, param string) (string, error) {
	values, err := r.primary.ConfigGet(ctx, param).Result()
	if err != nil {
		return "", fmt.Errorf("config get %s: %w", param, closedErr(err))
	}
	return values[param], nil
}

// ConfigSet выполняет CONFIG SET.
func (r *Redis) ConfigSet(ctx context.Context, param, value string) error {
	if err := r.primary.ConfigSet(ctx, param, value).Err(); err != nil {
		return fmt.Errorf("config set %s: %w", param, closedErr(err))
	}
	return nil
}

// Close закрывает все три соединения.
func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, c := range []*redis.Client{r.primary, r.expiry, r.instant} {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close redis: %w", errs[0])
	}

	r.logger.Info("redis connections closed")
	return nil
}

// closedErr приводит ошибку закрытого клиента go-redis к ErrClosed.
func closedErr(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}

// redisSubscription переводит *redis.Message в Message.
type redisSubscription struct {
	ps   *redis.PubSub
	out  chan Message
	done chan struct{}
	once sync.Once
}

func newRedisSubscription(ps *redis.PubSub) *redisSubscription {
	s := &redisSubscription{
		ps:   ps,
		out:  make(chan Message, 64),
		done: make(chan struct{}),
	}
	go s.forward()
	return s
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		select {
		case s.out <- Message{Channel: msg.Channel, Payload: msg.Payload}:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
