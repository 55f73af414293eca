package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shaiso/redular/internal/keys"
	"github.com/shaiso/redular/internal/scheduler"
)

// defaultListWindow — окно GET /events, если end не указан.
const defaultListWindow = 24 * time.Hour

// ScheduleEvent планирует событие.
// POST /api/v1/events
func (h *Handler) ScheduleEvent(w http.ResponseWriter, r *http.Request) {
	var req ScheduleEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Валидация
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	var at time.Time
	switch {
	case req.At != nil && req.DelaySec != 0:
		BadRequest(w, "at and delay_sec are mutually exclusive")
		return
	case req.At != nil:
		at = *req.At
	case req.DelaySec > 0:
		at = h.now().Add(time.Duration(req.DelaySec) * time.Second)
	default:
		BadRequest(w, "either at or delay_sec is required")
		return
	}

	opts := scheduler.Options{Global: req.Global, ID: req.ID}
	if len(req.Payload) > 0 {
		opts.Payload = req.Payload
	}

	pair, ok, err := h.sched.Schedule(r.Context(), req.Name, at, opts)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}
	if !ok {
		InvalidState(w, "event not scheduled: time is in the past or store is unavailable")
		return
	}

	expiry, found := h.sched.GetEventExpiry(r.Context(), pair.Event)
	if !found {
		expiry = at.Truncate(time.Second)
	}

	Created(w, ScheduleEventResponse{
		EventKey: pair.Event,
		DataKey:  pair.Data,
		At:       expiry,
	})
}

// ListEvents возвращает события, срабатывающие в диапазоне.
// GET /api/v1/events?start=...&end=... (RFC3339)
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	if s := r.URL.Query().Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			BadRequest(w, "invalid start")
			return
		}
		start = t
	}

	end := start.Add(defaultListWindow)
	if s := r.URL.Query().Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			BadRequest(w, "invalid end")
			return
		}
		end = t
	}

	if end.Before(start) {
		BadRequest(w, "end is before start")
		return
	}

	eventKeys, err := h.sched.ListEvents(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to list events", "error", err)
		Unavailable(w, "failed to list events")
		return
	}

	result := make([]EventResponse, 0, len(eventKeys))
	for _, key := range eventKeys {
		at, ok := h.sched.GetEventExpiry(r.Context(), key)
		if !ok {
			// Сработало между обходом и запросом
			continue
		}
		result = append(result, EventFromKey(key, at))
	}

	List(w, result, len(result))
}

// DeleteEvent удаляет событие.
// DELETE /api/v1/events/{key...}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keys.IsEventKey(key) {
		BadRequest(w, "invalid event key")
		return
	}

	if !h.sched.DeleteEvent(r.Context(), key) {
		Unavailable(w, "failed to delete event")
		return
	}

	NoContent(w)
}

// GetEventExpiry возвращает время срабатывания события.
// GET /api/v1/events/{key...}
func (h *Handler) GetEventExpiry(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if !keys.IsEventKey(key) {
		BadRequest(w, "invalid event key")
		return
	}

	at, ok := h.sched.GetEventExpiry(r.Context(), key)
	if !ok {
		NotFound(w, "event not found")
		return
	}

	Success(w, ExpiryResponse{Key: key, At: at})
}

// InstantEvent публикует мгновенное событие.
// POST /api/v1/instant
func (h *Handler) InstantEvent(w http.ResponseWriter, r *http.Request) {
	var req InstantEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	var payload any
	if len(req.Payload) > 0 {
		payload = req.Payload
	}

	ok, err := h.sched.InstantEvent(r.Context(), req.Name, req.Global, payload)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}
	if !ok {
		Unavailable(w, "failed to publish instant event")
		return
	}

	JSON(w, http.StatusAccepted, DataResponse{Data: InstantEventResponse{Published: true}})
}

// PruneData удаляет осиротевшие ключи данных.
// POST /api/v1/prune
func (h *Handler) PruneData(w http.ResponseWriter, r *http.Request) {
	if !h.sched.PruneData(r.Context()) {
		Unavailable(w, "prune failed")
		return
	}

	Success(w, PruneResponse{Pruned: true})
}

// GetInstance возвращает id инстанса и зарегистрированные обработчики.
// GET /api/v1/instance
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	Success(w, InstanceResponse{
		InstanceID: h.sched.ClientID(),
		Handlers:   h.sched.Handlers(),
	})
}
