package ingest

import "errors"

// Ошибки intake.
var (
	// ErrUnknownCommand — тип сообщения не является командой.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidCommand — команда не прошла проверку.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrNotApplied — хранилище не приняло команду; стоит повторить.
	ErrNotApplied = errors.New("command not applied")
)
