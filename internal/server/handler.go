package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"

	"github.com/poail0-cell/duels-analyzer-1/internal/geoguessr"
	"github.com/poail0-cell/duels-analyzer-1/internal/stats"
	"github.com/poail0-cell/duels-analyzer-1/internal/store"
	"github.com/poail0-cell/duels-analyzer-1/internal/syncer"
)

// Handler exposes the sync engine and derivation pipeline as a JSON API for
// presentation consumers. It renders nothing: data out only.
type Handler struct {
	engine           *syncer.Engine
	store            store.RecordStore
	window           int
	minCountrySample int
	logger           *slog.Logger

	// The engine supports one sync cycle at a time; concurrent HTTP
	// callers are serialized here.
	mu sync.Mutex
}

func NewHandler(engine *syncer.Engine, st store.RecordStore, window, minCountrySample int, logger *slog.Logger) *Handler {
	return &Handler{
		engine:           engine,
		store:            st,
		window:           window,
		minCountrySample: minCountrySample,
		logger:           logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cache, err := h.store.Load(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	s := stats.Derive(cache, h.minCountrySample)
	if s.OmittedGames > 0 {
		h.logger.Warn("statistics derived from partial data", "omitted_games", s.OmittedGames)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

func (h *Handler) Games(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cache, err := h.store.Load(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}

	s := stats.Derive(cache, h.minCountrySample)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		Games        []stats.GameFact `json:"games"`
		OmittedGames int              `json:"omitted_games"`
	}{Games: s.Games, OmittedGames: s.OmittedGames})
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.runCycle(w, r, false)
}

func (h *Handler) Resync(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.runCycle(w, r, true)
}

func (h *Handler) runCycle(w http.ResponseWriter, r *http.Request, full bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	cache, err := h.store.Load(ctx)
	if err != nil {
		h.storeError(w, err)
		return
	}

	var report *syncer.Report
	if full {
		_, report, err = h.engine.FullResync(ctx, cache)
	} else {
		_, report, err = h.engine.Sync(ctx, cache, h.window)
	}
	if err != nil {
		switch {
		case errors.Is(err, geoguessr.ErrAuth):
			http.Error(w, "session credential rejected by remote source", http.StatusUnauthorized)
		default:
			h.logger.Error("sync cycle failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrCorrupt) {
		// Surfaced loudly: the operator must inspect the store rather
		// than let it be silently rebuilt.
		h.logger.Error("record store is corrupt", "error", err)
		http.Error(w, "record store is corrupt; manual inspection required", http.StatusInternalServerError)
		return
	}
	h.logger.Error("record store load failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
