package store

import "errors"

// Ошибки хранилища.
var (
	// ErrClosed — хранилище или подписка закрыты.
	ErrClosed = errors.New("store closed")
)
