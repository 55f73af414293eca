package keys

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shaiso/redular/internal/domain"
)

// Namespaces и каналы.
const (
	EventNamespace = "redular"
	DataNamespace  = "redular-data"

	// InstantChannel — pub/sub канал мгновенных событий.
	InstantChannel = "redular:instant"

	// EventPattern — SCAN MATCH шаблон ключей событий.
	EventPattern = EventNamespace + ":*"

	// DataPattern — SCAN MATCH шаблон ключей данных.
	DataPattern = DataNamespace + ":*"

	sep         = ":"
	eventPrefix = EventNamespace + sep
	dataPrefix  = DataNamespace + sep
)

// Codec строит ключи событий для конкретного инстанса.
type Codec struct {
	instanceID string
}

// NewCodec создаёт Codec для инстанса instanceID.
func NewCodec(instanceID string) *Codec {
	return &Codec{instanceID: instanceID}
}

// Scope возвращает scope события: "global" или id инстанса.
func (c *Codec) Scope(global bool) string {
	if global {
		return domain.GlobalScope
	}
	return c.instanceID
}

// MakeKeys строит пару ключей события.
//
// Если id пустой, генерируется новый. При одинаковых аргументах
// (включая id) результат всегда одинаковый.
func (c *Codec) MakeKeys(name string, global bool, id string) (domain.EventKeys, error) {
	if id == "" {
		id = NewID()
	}
	return Encode(domain.EventRef{Scope: c.Scope(global), Name: name, ID: id})
}

// Encode собирает пару ключей из тройки (scope, name, id).
//
// scope и id не могут содержать ':', иначе ключ не разобрать обратно.
// name может содержать ':' — он занимает всё между scope и id.
func Encode(ref domain.EventRef) (domain.EventKeys, error) {
	if ref.Scope == "" || ref.Name == "" || ref.ID == "" {
		return domain.EventKeys{}, fmt.Errorf("%w: empty scope, name or id", ErrMalformedKey)
	}
	if strings.Contains(ref.Scope, sep) {
		return domain.EventKeys{}, fmt.Errorf("%w: scope %q contains %q", ErrMalformedKey, ref.Scope, sep)
	}
	if strings.Contains(ref.ID, sep) {
		return domain.EventKeys{}, fmt.Errorf("%w: id %q contains %q", ErrMalformedKey, ref.ID, sep)
	}

	suffix := ref.Scope + sep + ref.Name + sep + ref.ID
	return domain.EventKeys{
		Event: eventPrefix + suffix,
		Data:  dataPrefix + suffix,
	}, nil
}

// Decode разбирает ключ события на (scope, name, id).
//
// Возвращает ErrMalformedKey, если строка не начинается с "redular:"
// или в ней меньше трёх непустых частей.
func Decode(eventKey string) (domain.EventRef, error) {
	rest, ok := strings.CutPrefix(eventKey, eventPrefix)
	if !ok {
		return domain.EventRef{}, fmt.Errorf("%w: %q", ErrMalformedKey, eventKey)
	}
	return splitRef(eventKey, rest)
}

// DecodeData разбирает ключ данных на (scope, name, id).
func DecodeData(dataKey string) (domain.EventRef, error) {
	rest, ok := strings.CutPrefix(dataKey, dataPrefix)
	if !ok {
		return domain.EventRef{}, fmt.Errorf("%w: %q", ErrMalformedKey, dataKey)
	}
	return splitRef(dataKey, rest)
}

func splitRef(key, rest string) (domain.EventRef, error) {
	first := strings.Index(rest, sep)
	last := strings.LastIndex(rest, sep)
	if first <= 0 || last == first || last == len(rest)-1 {
		return domain.EventRef{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}

	ref := domain.EventRef{
		Scope: rest[:first],
		Name:  rest[first+1 : last],
		ID:    rest[last+1:],
	}
	if ref.Name == "" {
		return domain.EventRef{}, fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	return ref, nil
}

// IsEventKey проверяет, что строка — корректный ключ события.
func IsEventKey(key string) bool {
	_, err := Decode(key)
	return err == nil
}

// DataKeyFor возвращает ключ данных для ключа события.
func DataKeyFor(eventKey string) (string, error) {
	rest, ok := strings.CutPrefix(eventKey, eventPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, eventKey)
	}
	return dataPrefix + rest, nil
}

// EventKeyFor возвращает ключ события для ключа данных.
func EventKeyFor(dataKey string) (string, error) {
	rest, ok := strings.CutPrefix(dataKey, dataPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMalformedKey, dataKey)
	}
	return eventPrefix + rest, nil
}

// NewID генерирует уникальный id события или инстанса.
func NewID() string {
	return uuid.NewString()
}
