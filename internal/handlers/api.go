package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"aktis-collector-monday/internal/common"
	"aktis-collector-monday/internal/interfaces"
	"aktis-collector-monday/internal/models"

	"github.com/ternarybob/arbor"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// APIHandlers contains all API endpoint handlers
type APIHandlers struct {
	config    *common.Config
	runner    interfaces.ExportRunner
	store     interfaces.RunStore
	metrics   interfaces.MetricsRenderer
	logger    arbor.ILogger
	startTime time.Time
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Uptime    float64   `json:"uptime_seconds"`
	Services  struct {
		Database bool `json:"database"`
		Board    bool `json:"board_configured"`
	} `json:"services"`
}

// StatusResponse represents the collector status response
type StatusResponse struct {
	Collector struct {
		Running bool    `json:"running"`
		Uptime  float64 `json:"uptime"`
		BoardID string  `json:"board_id"`
		Target  string  `json:"target"`
		Path    string  `json:"path"`
	} `json:"collector"`
	LastRun     *models.RunRecord `json:"last_run,omitempty"`
	LastSuccess *models.RunRecord `json:"last_success,omitempty"`
	RunCount    int               `json:"run_count"`
}

// ErrorResponse is written for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
	Code  string `json:"code,omitempty"`
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(config *common.Config, runner interfaces.ExportRunner, store interfaces.RunStore, metrics interfaces.MetricsRenderer, logger arbor.ILogger) *APIHandlers {
	return &APIHandlers{
		config:    config,
		runner:    runner,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		startTime: time.Now(),
	}
}

// HealthHandler returns system health status
func (h *APIHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   common.GetVersion(),
		Build:     common.GetBuild(),
		Uptime:    time.Since(h.startTime).Seconds(),
	}

	health.Services.Database = h.testDatabaseConnection()
	health.Services.Board = h.config.ValidateBoardAccess() == nil

	if !health.Services.Database || !health.Services.Board {
		health.Status = "degraded"
	}

	h.writeJSON(w, http.StatusOK, health)
}

// VersionHandler returns build information
func (h *APIHandlers) VersionHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, common.GetBuildInfo())
}

// StatusHandler returns the collector state and the latest ledger entries
func (h *APIHandlers) StatusHandler(w http.ResponseWriter, r *http.Request) {
	var status StatusResponse
	status.Collector.Running = h.runner.IsRunning()
	status.Collector.Uptime = time.Since(h.startTime).Seconds()
	status.Collector.BoardID = h.config.Monday.BoardID
	status.Collector.Target = h.config.Output.Target
	status.Collector.Path = h.config.Output.Path

	if h.store != nil {
		var err error
		if status.LastRun, err = h.store.LastRun(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to load last run for status")
		}
		if status.LastSuccess, err = h.store.LastSuccess(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to load last success for status")
		}
		if status.RunCount, err = h.store.CountRuns(); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to count runs for status")
		}
	}

	h.writeJSON(w, http.StatusOK, status)
}

// RunsHandler lists ledger entries, newest first
func (h *APIHandlers) RunsHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs := []*models.RunRecord{}
	if h.store != nil {
		loaded, err := h.store.LoadRuns(limit)
		if err != nil {
			h.logger.Error().Err(err).Msg("Failed to load runs")
			h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to load runs"})
			return
		}
		runs = loaded
	}

	h.writeJSON(w, http.StatusOK, runs)
}

// ExportHandler runs an export and returns its result
func (h *APIHandlers) ExportHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// MetricsHandler renders ticket gauges from a fresh board snapshot
func (h *APIHandlers) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	records, err := h.runner.Snapshot(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to collect metrics snapshot")
		w.WriteHeader(statusForError(err))
		w.Write([]byte("# metrics unavailable: " + string(common.TypeOf(err)) + "\n"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.metrics.Render(records, time.Now())))
}

func (h *APIHandlers) testDatabaseConnection() bool {
	if h.store == nil {
		return false
	}
	_, err := h.store.CountRuns()
	return err == nil
}

func (h *APIHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *APIHandlers) writeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{Error: err.Error(), Type: string(common.TypeOf(err))}
	var collectorErr *common.CollectorError
	if errors.As(err, &collectorErr) {
		response.Code = collectorErr.Code
	}
	h.writeJSON(w, statusForError(err), response)
}

// statusForError maps the error taxonomy onto HTTP statuses
func statusForError(err error) int {
	if common.HasCode(err, "run_in_progress") {
		return http.StatusConflict
	}
	switch common.TypeOf(err) {
	case common.ErrorTypeConfiguration:
		return http.StatusUnprocessableEntity
	case common.ErrorTypeConflict:
		return http.StatusConflict
	case common.ErrorTypeTransport, common.ErrorTypeUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
