package listener

import "errors"

// Ошибки listener'а.
var (
	// ErrNoHandler — событие совпало, но обработчик не задан.
	ErrNoHandler = errors.New("no handler defined")

	// ErrDeserialization — payload события не является корректным JSON.
	ErrDeserialization = errors.New("deserialize payload")

	// ErrAlreadyListening — подписка уже выполнена.
	ErrAlreadyListening = errors.New("listener already listening")

	// ErrNotListening — Run вызван до Subscribe.
	ErrNotListening = errors.New("listener not subscribed")

	// ErrSubscriptionClosed — хранилище закрыло подписку.
	ErrSubscriptionClosed = errors.New("subscription closed")
)
