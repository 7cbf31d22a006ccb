package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"transcriptor/pkg/budget"
	"transcriptor/pkg/history"
	"transcriptor/pkg/logging"
	"transcriptor/pkg/models"
	"transcriptor/pkg/output"
	"transcriptor/pkg/storage"
	"transcriptor/pkg/transcribe"
)

type Handlers struct {
	engine    *transcribe.Engine
	jobs      storage.JobStore
	ledger    *budget.Ledger
	history   *history.Log
	uploadDir string
	baseCtx   context.Context
	log       *log.Logger
}

// NewHandlers wires the API surface. baseCtx bounds background jobs: when the
// server shuts down, in-flight transcriptions are cancelled between pipeline
// steps.
func NewHandlers(baseCtx context.Context, engine *transcribe.Engine, jobs storage.JobStore, ledger *budget.Ledger, hist *history.Log, uploadDir string) *Handlers {
	return &Handlers{
		engine:    engine,
		jobs:      jobs,
		ledger:    ledger,
		history:   hist,
		uploadDir: uploadDir,
		baseCtx:   baseCtx,
		log:       logging.New("api"),
	}
}

// SubmitHandler accepts a transcription request: a "model" form value plus
// either an uploaded "audio" file or a local "path". The job runs on its own
// goroutine; the response carries the job id to poll or watch.
func (h *Handlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, "failed to parse form", http.StatusBadRequest)
		return
	}

	modelID := r.FormValue("model")
	if modelID == "" {
		http.Error(w, "model is required", http.StatusBadRequest)
		return
	}
	if _, ok := models.LookupModel(modelID); !ok {
		http.Error(w, fmt.Sprintf("unknown model %q", modelID), http.StatusBadRequest)
		return
	}

	sourcePath := r.FormValue("path")
	if file, header, err := r.FormFile("audio"); err == nil {
		defer file.Close()
		saved, err := h.saveUpload(file, header.Filename)
		if err != nil {
			h.log.Error("failed to save upload", "error", err)
			http.Error(w, "failed to save upload", http.StatusInternalServerError)
			return
		}
		sourcePath = saved
	}
	if sourcePath == "" {
		http.Error(w, "either an audio upload or a path is required", http.StatusBadRequest)
		return
	}

	job := models.NewJob(sourcePath, modelID)
	if err := h.jobs.StoreJob(job); err != nil {
		http.Error(w, "failed to register job", http.StatusInternalServerError)
		return
	}

	h.log.Info("job submitted", "job", job.ID, "model", modelID, "source", job.Source)
	go h.runJob(job.ID, sourcePath, modelID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *Handlers) runJob(jobID, sourcePath, modelID string) {
	progress := func(s models.JobStatus) {
		_ = h.jobs.UpdateJobStatus(jobID, s)
	}

	outcome, err := h.engine.Transcribe(h.baseCtx, sourcePath, modelID, progress)
	if err != nil {
		h.log.Error("job failed", "job", jobID, "error", err)
		_ = h.jobs.FailJob(jobID, err.Error())
		return
	}

	if outcome.CostUSD > 0 {
		if err := h.ledger.Consume(outcome.CostUSD); err != nil {
			h.log.Error("failed to record spend", "job", jobID, "error", err)
		}
	}

	if _, err := h.history.Add(history.Record{
		Source:      filepath.Base(sourcePath),
		Model:       modelID,
		Language:    outcome.Result.Language,
		DurationSec: outcome.DurationSec,
		CostUSD:     outcome.CostUSD,
		TextLength:  len(outcome.Result.Text),
	}); err != nil {
		h.log.Error("failed to record history", "job", jobID, "error", err)
	}

	_ = h.jobs.CompleteJob(jobID, &outcome.Result, outcome.CostUSD)
	h.log.Info("job completed", "job", jobID, "cost_usd", outcome.CostUSD)
}

func (h *Handlers) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// GetSRTHandler serves the subtitle rendition of a completed job.
func (h *Handlers) GetSRTHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, output.SRT(*job.Result))
}

// GetTextHandler serves the plain transcript of a completed job.
func (h *Handlers) GetTextHandler(w http.ResponseWriter, r *http.Request) {
	job, ok := h.completedJob(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, job.Result.Text)
}

func (h *Handlers) GetBudgetHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.ledger.GetStats())
}

func (h *Handlers) SetBudgetLimitHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LimitUSD float64 `json:"limit_usd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := h.ledger.SetLimit(body.LimitUSD); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.ledger.GetStats())
}

func (h *Handlers) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := h.history.List(limit)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (h *Handlers) GetModelsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.AllModels())
}

func (h *Handlers) lookupJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id := mux.Vars(r)["id"]
	job, err := h.jobs.GetJob(id)
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			http.Error(w, "job not found", http.StatusNotFound)
			return nil, false
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return job, true
}

func (h *Handlers) completedJob(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	job, ok := h.lookupJob(w, r)
	if !ok {
		return nil, false
	}
	if job.Status != models.StatusCompleted || job.Result == nil {
		http.Error(w, "job not completed", http.StatusConflict)
		return nil, false
	}
	return job, true
}

func (h *Handlers) saveUpload(file io.Reader, name string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(h.uploadDir, filepath.Base(name))
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, file); err != nil {
		return "", err
	}
	return dst, nil
}
