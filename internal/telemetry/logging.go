package telemetry

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// ServiceName — значение атрибута service во всех записях демона.
const ServiceName = "redular"

// LogConfig — параметры логгера.
type LogConfig struct {
	Level slog.Level

	// Format — "json" или "text".
	Format string

	// Output — куда писать (default: os.Stdout).
	Output io.Writer
}

// LogConfigFromEnv читает LOG_LEVEL и LOG_FORMAT.
func LogConfigFromEnv() LogConfig {
	format := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if format != "text" {
		format = "json"
	}
	return LogConfig{
		Level:  ParseLevel(os.Getenv("LOG_LEVEL")),
		Format: format,
	}
}

// ParseLevel разбирает уровень в синтаксисе slog (debug, INFO, warn+2, ...).
// Пустая или некорректная строка — INFO.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if s == "" || level.UnmarshalText([]byte(s)) != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger создаёт логгер с атрибутом service.
//
// Строковые атрибуты с ключом *url (redis_url, amqp_url, db_url)
// выводятся без пароля.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.Level <= slog.LevelDebug,
		ReplaceAttr: redactURLs,
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler).With("service", ServiceName)
}

// SetupLogger создаёт логгер из окружения и делает его глобальным.
func SetupLogger() *slog.Logger {
	logger := NewLogger(LogConfigFromEnv())
	slog.SetDefault(logger)
	return logger
}

func redactURLs(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString || !strings.HasSuffix(strings.ToLower(a.Key), "url") {
		return a
	}
	return slog.String(a.Key, RedactURL(a.Value.String()))
}

// RedactURL убирает пароль из URL. Строки, которые не разбираются
// как URL с userinfo, возвращаются как есть.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}

type ctxKey struct{}

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext извлекает логгер из контекста.
// Если логгер не найден, возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithInstanceID возвращает логгер с добавленным instance_id.
func WithInstanceID(logger *slog.Logger, instanceID string) *slog.Logger {
	return logger.With("instance_id", instanceID)
}

// WithEventKey возвращает логгер с добавленным event_key.
func WithEventKey(logger *slog.Logger, eventKey string) *slog.Logger {
	return logger.With("event_key", eventKey)
}

// WithEventName возвращает логгер с добавленным event.
func WithEventName(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("event", name)
}
