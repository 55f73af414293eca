package mq

import "errors"

// Ошибки mq.
var (
	// ErrNoChannel — соединение ещё не открыло канал или уже закрыто.
	ErrNoChannel = errors.New("no channel available")

	// ErrReject — обработчик отклоняет сообщение без повтора (уходит в DLQ).
	ErrReject = errors.New("message rejected")
)
