package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/redular/internal/domain"
	"github.com/shaiso/redular/internal/repo"
)

// ListHistory возвращает журнал сработавших событий.
// GET /api/v1/history?name=...&source=...&limit=...&offset=...
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		NotConfigured(w, "journal is not configured")
		return
	}

	q := r.URL.Query()
	filter := repo.JournalFilter{
		Name:   q.Get("name"),
		Source: domain.Source(q.Get("source")),
		Limit:  int(parseIntParam(q.Get("limit"), repo.DefaultJournalLimit)),
		Offset: int(parseIntParam(q.Get("offset"), 0)),
	}

	entries, err := h.journal.List(r.Context(), filter)
	if HandleSchedulerError(w, h.logger, err) {
		return
	}

	result := make([]HistoryEntryResponse, len(entries))
	for i := range entries {
		result[i] = HistoryEntryFromRepo(entries[i])
	}

	List(w, result, len(result))
}

// parseIntParam парсит query-параметр; при ошибке возвращает def.
func parseIntParam(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
