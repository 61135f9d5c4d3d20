// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rovshanmuradov/raffle-monitor/internal/export"
	"go.uber.org/zap"
)

const defaultLimit = 50

type handler struct {
	deps     Deps
	exporter *export.Exporter
	logger   *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("Failed to encode response", zap.Error(err))
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handler) status(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deps.Status.Snapshot())
}

func (h *handler) raffle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap := h.deps.Status.Snapshot()
	for _, a := range snap.Active {
		if a.ID == id {
			h.writeJSON(w, http.StatusOK, map[string]any{"state": "active", "raffle": a})
			return
		}
	}
	for _, e := range snap.Ended {
		if e.ID == id {
			h.writeJSON(w, http.StatusOK, map[string]any{"state": "ended", "raffle": e})
			return
		}
	}
	h.writeJSON(w, http.StatusNotFound, errorResponse{Error: "raffle not tracked"})
}

func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.deps.Events.Recent(limit))
}

func (h *handler) announcements(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r)
	if !ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
		return
	}
	h.writeJSON(w, http.StatusOK, h.deps.Journal.Recent(limit))
}

// exportAnnouncements streams the whole journal, filtered by the kind,
// raffle and delivered query parameters.
func (h *handler) exportAnnouncements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	options := export.Options{
		Format:        format,
		Kind:          q.Get("kind"),
		RaffleID:      q.Get("raffle"),
		OnlyDelivered: q.Get("delivered") == "true",
	}

	entries := h.deps.Journal.Recent(0)
	if len(h.exporter.Filter(entries, options)) == 0 {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: export.ErrNoEntries.Error()})
		return
	}

	contentType := "text/csv"
	if format == export.FormatJSON {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := h.exporter.Write(w, entries, options); err != nil && !errors.Is(err, export.ErrNoEntries) {
		h.logger.Warn("Export failed", zap.Error(err))
	}
}

// dailyReport answers /announcements/report?date=YYYY-MM-DD; the default is
// today in UTC.
func (h *handler) dailyReport(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	report, ok := h.exporter.BuildDailyReport(h.deps.Journal.Recent(0), date)
	if !ok {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: export.ErrNoEntries.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func parseLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
