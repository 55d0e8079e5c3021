package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lmokoena/marketscout/internal/models"
	"github.com/lmokoena/marketscout/internal/scraper"
	"github.com/lmokoena/marketscout/internal/storage"
)

// Handlers is the thin HTTP adapter over the extraction and persistence
// boundary. It owns no business logic; the engine packages stay usable
// as a library without it.
type Handlers struct {
	scraper     *scraper.Service
	collections *storage.CollectionStore
	history     *storage.HistoryStore
	logger      *slog.Logger
}

func NewHandlers(s *scraper.Service, collections *storage.CollectionStore, history *storage.HistoryStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:     s,
		collections: collections,
		history:     history,
		logger:      logger,
	}
}

// ScrapeRequest carries the product URL to extract.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// Scrape runs a full extraction and returns either the snapshot or a
// structured {error, details} failure.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "URL is required")
		return
	}

	h.logger.Info("scrape requested", "url", req.URL)

	snapshot, err := h.scraper.Extract(r.Context(), req.URL)
	if err != nil {
		var se *models.ScrapeError
		status := http.StatusInternalServerError
		if errors.As(err, &se) && se.Code == models.ErrUnsupportedSource {
			status = http.StatusBadRequest
		}
		h.logger.Error("scrape failed", "url", req.URL, "error", err)
		h.respondJSON(w, status, err)
		return
	}

	h.respondJSON(w, http.StatusOK, snapshot)
}

// GetHistory returns a product's stored time series, oldest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "product id is required")
		return
	}

	entries, err := h.history.Get(id)
	if err != nil {
		h.logger.Error("failed to read history", "id", id, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, err)
		return
	}

	h.respondJSON(w, http.StatusOK, entries)
}

// AppendHistory stores one daily snapshot for a product and reports the
// resulting series length.
func (h *Handlers) AppendHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.respondError(w, http.StatusBadRequest, "product id is required")
		return
	}

	var entry models.HistoryEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid history entry")
		return
	}

	count, err := h.history.Append(id, entry)
	if err != nil {
		h.logger.Error("failed to append history", "id", id, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "count": count})
}

// GetCollection returns a whole collection document.
func (h *Handlers) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	doc, err := h.collections.Get(name)
	if err != nil {
		h.logger.Error("failed to read collection", "collection", name, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// PutCollection replaces a collection document wholesale.
func (h *Handlers) PutCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")

	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		h.respondError(w, http.StatusBadRequest, "request body must be valid JSON")
		return
	}

	if err := h.collections.Put(name, json.RawMessage(body)); err != nil {
		h.logger.Error("failed to save collection", "collection", name, "error", err)
		h.respondJSON(w, http.StatusInternalServerError, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"success": true, "collection": name})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
