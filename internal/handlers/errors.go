package handlers

import "errors"

// Ошибки реестра.
var (
	// ErrDuplicateHandler — обработчик с таким именем уже зарегистрирован.
	ErrDuplicateHandler = errors.New("handler already exists")

	// ErrInvalidHandler — обработчик не может быть вызван (nil).
	ErrInvalidHandler = errors.New("invalid handler")
)

// ErrWebhook — ошибка доставки события во внешний HTTP endpoint.
var ErrWebhook = errors.New("webhook delivery failed")
