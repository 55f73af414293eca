package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
//
// Ключ события занимает остаток пути ({key...}): имя события может
// содержать '/'.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(),
		Logging(),
	)

	// Events
	mux.Handle("POST /api/v1/events", chain(http.HandlerFunc(h.ScheduleEvent)))
	mux.Handle("GET /api/v1/events", chain(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/v1/events/{key...}", chain(http.HandlerFunc(h.GetEventExpiry)))
	mux.Handle("DELETE /api/v1/events/{key...}", chain(http.HandlerFunc(h.DeleteEvent)))

	// Instant events
	mux.Handle("POST /api/v1/instant", chain(http.HandlerFunc(h.InstantEvent)))

	// Maintenance
	mux.Handle("POST /api/v1/prune", chain(http.HandlerFunc(h.PruneData)))
	mux.Handle("GET /api/v1/instance", chain(http.HandlerFunc(h.GetInstance)))

	// History
	mux.Handle("GET /api/v1/history", chain(http.HandlerFunc(h.ListHistory)))
}
