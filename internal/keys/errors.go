package keys

import "errors"

// Ошибки кодека.
var (
	// ErrMalformedKey — строка не соответствует формату ключа события.
	ErrMalformedKey = errors.New("malformed event key")
)
