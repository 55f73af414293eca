package store

import (
	"context"
	"fmt"
	"time"
)

// Role — назначение соединения инстанса.
type Role string

const (
	// RolePrimary — команды (SET, GET, DEL, SCAN, PUBLISH, CONFIG).
	RolePrimary Role = "primary"

	// RoleExpiry — подписка на уведомления об истечении ключей.
	RoleExpiry Role = "expiry"

	// RoleInstant — подписка на канал мгновенных событий.
	RoleInstant Role = "instant"
)

// Значения PEXPIRETIME для ключей без срока жизни.
const (
	// NoExpiry — ключ существует, но TTL не задан.
	NoExpiry int64 = -1

	// NoKey — ключа нет.
	NoKey int64 = -2
)

// NotifyKeyspaceEvents — параметр CONFIG для keyspace-уведомлений.
const NotifyKeyspaceEvents = "notify-keyspace-events"

// EventWrite — атомарная запись пары ключей события.
type EventWrite struct {
	// EventKey — ключ-маркер, значение Owner, TTL EventTTL.
	EventKey string
	Owner    string
	EventTTL time.Duration

	// DataKey — ключ с payload. Если Data == nil, значение не трогается,
	// но существующему ключу выставляется DataTTL.
	DataKey string
	Data    []byte
	DataTTL time.Duration
}

// Message — сообщение из pub/sub канала.
type Message struct {
	Channel string
	Payload string
}

// Subscription — активная подписка на канал.
type Subscription interface {
	// Messages возвращает канал сообщений. Закрывается после Close.
	Messages() <-chan Message

	// Close отменяет подписку.
	Close() error
}

// Store — примитивы хранилища, которыми пользуется планировщик.
//
// Все методы ждут ответа хранилища.
type Store interface {
	// WriteEvent записывает ключ данных (если есть) и ключ события одной транзакцией.
	WriteEvent(ctx context.Context, w EventWrite) error

	// Get возвращает значение ключа. ok=false, если ключа нет.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Del удаляет ключи и возвращает количество удалённых.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Exists проверяет наличие ключа.
	Exists(ctx context.Context, key string) (bool, error)

	// Scan выполняет одну итерацию SCAN cursor MATCH match COUNT count.
	// Курсор 0 в ответе означает конец обхода.
	Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)

	// PExpireTime возвращает абсолютное время истечения ключа в миллисекундах
	// Unix, либо NoExpiry / NoKey.
	PExpireTime(ctx context.Context, key string) (int64, error)

	// Publish публикует сообщение в канал.
	Publish(ctx context.Context, channel string, message []byte) error

	// Subscribe подписывается на канал через соединение role.
	Subscribe(ctx context.Context, role Role, channel string) (Subscription, error)

	// ConfigGet читает параметр конфигурации сервера.
	ConfigGet(ctx context.Context, param string) (string, error)

	// ConfigSet меняет параметр конфигурации сервера.
	ConfigSet(ctx context.Context, param, value string) error

	// DB возвращает номер базы данных (для канала __keyevent@<db>__).
	DB() int
}

// ExpiredChannel возвращает канал уведомлений об истечении ключей в базе db.
func ExpiredChannel(db int) string {
	return fmt.Sprintf("__keyevent@%d__:expired", db)
}
