package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
)

// Func — обработчик события.
//
// payload — JSON данные события, nil если данных нет.
type Func func(ctx context.Context, payload json.RawMessage)

// Registry — реестр обработчиков по имени события.
//
// Изменяется владельцем (Scheduler), читается горутиной dispatch.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Func
	logger   *slog.Logger
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string]Func),
		logger:   logger,
	}
}

// Define регистрирует обработчик и возвращает имя события.
func (r *Registry) Define(name string, fn Func) (string, error) {
	if fn == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	r.handlers[name] = fn
	return name, nil
}

// Remove удаляет обработчик. Если его нет — ничего не делает.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// RemoveAll удаляет все обработчики.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string]Func)
}

// Get возвращает обработчик по имени.
func (r *Registry) Get(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}

// Names возвращает отсортированный список имён зарегистрированных событий.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество обработчиков.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// Dispatch вызывает обработчик события name.
//
// Возвращает false, если обработчика нет. Паника в обработчике
// перехватывается и логируется.
func (r *Registry) Dispatch(ctx context.Context, name string, payload json.RawMessage) (handled bool) {
	fn, ok := r.Get(name)
	if !ok {
		return false
	}

	handled = true
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panicked",
				"event", name,
				"error", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	fn(ctx, payload)
	return handled
}
