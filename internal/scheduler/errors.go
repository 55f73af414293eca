package scheduler

import "errors"

// Ошибки планировщика.
var (
	// ErrSerialization — payload нельзя закодировать в JSON.
	ErrSerialization = errors.New("serialize payload")

	// ErrNoStore — в Config не задано хранилище.
	ErrNoStore = errors.New("store is required")

	// ErrInvalidInstanceID — id инстанса пустой, равен "global" или содержит ':'.
	ErrInvalidInstanceID = errors.New("invalid instance id")

	// ErrAlreadyStarted — Start уже вызван.
	ErrAlreadyStarted = errors.New("scheduler already started")
)
