package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/aegis-options/internal/contracts"
	"github.com/wonny/aegis-options/internal/legstore"
	"github.com/wonny/aegis-options/internal/runstore"
	"github.com/wonny/aegis-options/internal/search"
	"github.com/wonny/aegis-options/internal/strategyconfig"
	"github.com/wonny/aegis-options/pkg/logger"
)

// maxBodyBytes bounds the search request (legs + P&L arrays)
const maxBodyBytes = 32 << 20

// RunRepository is the run history store (nil: history disabled)
type RunRepository interface {
	SaveRun(ctx context.Context, res *search.RunResult, snap *strategyconfig.RunSnapshot) error
	GetRun(ctx context.Context, runID string) (*runstore.StoredRun, error)
	ListRuns(ctx context.Context, limit int) ([]runstore.RunSummary, error)
}

// RunCache is the recent result cache
type RunCache interface {
	Lookup(ctx context.Context, storeFingerprint uint64, configHash string, topN int) (*search.RunResult, bool, error)
	Store(ctx context.Context, res *search.RunResult, topN int) error
	ByRunID(ctx context.Context, runID string) (*search.RunResult, bool, error)
}

// SearchHandler handles strategy search endpoints
// ⭐ SSOT: 탐색 API 핸들러는 이 구조체에서만
type SearchHandler struct {
	engine *search.Engine
	repo   RunRepository
	cache  RunCache
	logger *logger.Logger
}

// NewSearchHandler creates a new search handler. repo and cache may be nil.
func NewSearchHandler(engine *search.Engine, repo RunRepository, cache RunCache, log *logger.Logger) *SearchHandler {
	return &SearchHandler{
		engine: engine,
		repo:   repo,
		cache:  cache,
		logger: log.WithComponent("api.search"),
	}
}

// SearchRequest is the POST /api/search body
type SearchRequest struct {
	Legs   legstore.Input  `json:"legs"`
	Config json.RawMessage `json:"config"` // strategy.yaml과 같은 스키마
}

// SearchResponse wraps a run result
type SearchResponse struct {
	Cached   bool                     `json:"cached"`
	Warnings []strategyconfig.Warning `json:"warnings,omitempty"`
	Result   *search.RunResult        `json:"result"`
}

// Search runs a strategy search
// POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Config) == 0 {
		respondError(w, http.StatusBadRequest, "config is required")
		return
	}

	cfg, err := strategyconfig.DecodeJSON(req.Config)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, err := legstore.Build(req.Legs)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := SearchResponse{Warnings: strategyconfig.Warn(cfg)}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash config")
		return
	}
	if h.cache != nil {
		cached, found, err := h.cache.Lookup(ctx, store.Fingerprint(), hash, cfg.Search.TopN)
		if err != nil {
			h.logger.WithError(err).Warn("Run cache lookup failed")
		}
		if found {
			resp.Cached = true
			resp.Result = cached
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	res, err := h.engine.Run(ctx, store, search.RunConfig{Strategy: cfg})
	if err != nil {
		status := http.StatusInternalServerError
		var perr *contracts.PreconditionError
		switch {
		case errors.As(err, &perr):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, err.Error())
		return
	}

	if h.cache != nil {
		if err := h.cache.Store(ctx, res, cfg.Search.TopN); err != nil {
			h.logger.WithError(err).Warn("Run cache store failed")
		}
	}
	if h.repo != nil {
		snap, err := strategyconfig.NewRunSnapshot(cfg, req.Config, store.Fingerprint())
		if err == nil {
			err = h.repo.SaveRun(ctx, res, snap)
		}
		if err != nil {
			h.logger.WithError(err).WithField("run_id", res.RunID).Error("Failed to save run")
		}
	}

	resp.Result = res
	respondJSON(w, http.StatusOK, resp)
}

// GetRun returns a run by id (cache first, then history)
// GET /api/runs/{id}
func (h *SearchHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := mux.Vars(r)["id"]

	if h.cache != nil {
		if res, found, err := h.cache.ByRunID(ctx, runID); err == nil && found {
			respondJSON(w, http.StatusOK, res)
			return
		}
	}

	if h.repo == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	run, err := h.repo.GetRun(ctx, runID)
	if errors.Is(err, runstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// ListRuns returns recent runs
// GET /api/runs?limit=20
func (h *SearchHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondJSON(w, http.StatusOK, []runstore.RunSummary{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
