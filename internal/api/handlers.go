package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/aliexpress-price-scraper/internal/jobs"
	"github.com/maltedev/aliexpress-price-scraper/internal/storage"
)

type Handlers struct {
	jobs   *jobs.Manager
	store  *storage.RecordStore
	logger *slog.Logger
}

func NewHandlers(jobManager *jobs.Manager, store *storage.RecordStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		jobs:   jobManager,
		store:  store,
		logger: logger,
	}
}

// CreateJobRequest starts an acquisition batch: a listing URL to expand,
// or explicit product page URLs.
type CreateJobRequest struct {
	ListURL string   `json:"list_url"`
	Targets []string `json:"targets"`
}

type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateJob handles new acquisition job creation.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.CreateJob(req.ListURL, req.Targets)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetJob handles job status retrieval.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, found := h.jobs.GetJob(jobID)
	if !found {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	h.respondJSON(w, http.StatusOK, job)
}

// ListJobs lists all jobs, newest first.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs())
}

// CancelJob stops a running job or withdraws a pending one.
func (h *Handlers) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := h.jobs.Cancel(jobID); err != nil {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// Resume unblocks a job parked on a captcha challenge after the operator
// has solved it in the browser.
func (h *Handlers) Resume(w http.ResponseWriter, r *http.Request) {
	if !h.jobs.Resume() {
		h.respondError(w, http.StatusConflict, "no job is waiting for resume")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// GetStats reports job counts and queue depth.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.GetStats())
}

// ListRecords lists the cached record index.
func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.List())
}

// GetRecord returns one scraped product record.
func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	record, found, err := h.store.Get(productID)
	if err != nil {
		h.logger.Error("failed to load record", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	if !found {
		h.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	h.respondJSON(w, http.StatusOK, record)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
