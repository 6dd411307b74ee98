// Package api exposes the ingestion pipeline over HTTP: file submission,
// run listing, progress polling, and cancellation.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/liquidation-pipeline/internal/ingest"
	"github.com/ignite/liquidation-pipeline/internal/pkg/logger"
	"github.com/ignite/liquidation-pipeline/internal/progress"
	"github.com/ignite/liquidation-pipeline/internal/sheet"
	"github.com/ignite/liquidation-pipeline/internal/store"
)

// maxUploadBytes bounds the multipart form held in memory. The
// orchestrator applies its own (tighter) file ceiling afterwards.
const maxUploadBytes = 100 << 20

// Runner ingests one uploaded file. *ingest.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, fileBytes []byte, fileName string, opts ingest.Options) (*ingest.RunResult, error)
}

// Handlers holds the dependencies of the HTTP layer.
type Handlers struct {
	store  store.Store
	runner Runner
	broker *progress.Broker
	opts   ingest.Options
}

func NewHandlers(st store.Store, runner Runner, broker *progress.Broker, opts ingest.Options) *Handlers {
	return &Handlers{store: st, runner: runner, broker: broker, opts: opts}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/ingest", h.HandleIngest)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Get("/{runId}/progress", h.HandleRunProgress)
		r.Post("/{runId}/cancel", h.HandleCancelRun)
	})
}

// HandleIngest accepts a multipart upload and starts an asynchronous
// ingestion run. Responds 202 with the run ID; poll the progress
// endpoint for the outcome.
// POST /api/ingest
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSONError(w, "read upload", http.StatusInternalServerError)
		return
	}
	fileName := header.Filename

	if sheet.IsWorkbook(fileName) {
		data, err = sheet.ToCSV(data)
		if err != nil {
			writeJSONError(w, "unreadable workbook: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	runID := uuid.New()
	opts := h.opts
	opts.RunID = runID
	if h.broker != nil {
		opts.Progress = h.broker.Sink(runID.String())
		opts.Cancel = h.broker.Token(runID.String())
	}

	// The request context dies with the response; the run gets its own.
	go func() {
		if _, err := h.runner.Run(context.Background(), data, fileName, opts); err != nil {
			logger.Error("ingestion run failed", "run_id", runID, "file", fileName, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID.String(),
		"file":   fileName,
		"status": "accepted",
	})
}

// HandleListRuns returns recent file runs, newest first.
// GET /api/runs?limit=50
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSONError(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.store.ListFileRuns(r.Context(), limit)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.FileRun{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// HandleRunProgress returns the latest progress snapshot for a run.
// GET /api/runs/{runId}/progress
func (h *Handlers) HandleRunProgress(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeJSONError(w, "progress tracking unavailable", http.StatusServiceUnavailable)
		return
	}
	runID := chi.URLParam(r, "runId")
	if _, err := uuid.Parse(runID); err != nil {
		writeJSONError(w, "invalid run ID", http.StatusBadRequest)
		return
	}

	snap, err := h.broker.Get(r.Context(), runID)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if snap == nil {
		writeJSONError(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleCancelRun requests cooperative cancellation of a run. The run
// stops at its next batch boundary.
// POST /api/runs/{runId}/cancel
func (h *Handlers) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeJSONError(w, "progress tracking unavailable", http.StatusServiceUnavailable)
		return
	}
	runID := chi.URLParam(r, "runId")
	if _, err := uuid.Parse(runID); err != nil {
		writeJSONError(w, "invalid run ID", http.StatusBadRequest)
		return
	}

	if err := h.broker.RequestCancel(r.Context(), runID); err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": runID,
		"status": "cancel_requested",
	})
}

// HealthCheck reports liveness.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
