package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/jobs"
	"github.com/maltedev/aliexpress-price-scraper/internal/storage"
)

func testHandlers(t *testing.T) (*Handlers, *jobs.Manager) {
	t.Helper()

	cfg := &config.Config{
		Scraper: config.ScraperConfig{
			Mode:          "detailed",
			MaxProducts:   10,
			ProbeInterval: time.Millisecond,
			ProbeTimeout:  5 * time.Millisecond,
			PriceDiscount: 0.95,
		},
	}
	manager := jobs.NewManager(nil, cfg, nil, slog.Default())

	store, err := storage.NewRecordStore(t.TempDir())
	require.NoError(t, err)

	return NewHandlers(manager, store, slog.Default()), manager
}

func testRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/jobs", h.CreateJob)
	r.Get("/api/v1/jobs", h.ListJobs)
	r.Get("/api/v1/jobs/{jobID}", h.GetJob)
	r.Post("/api/v1/jobs/{jobID}/cancel", h.CancelJob)
	r.Post("/api/v1/resume", h.Resume)
	r.Get("/api/v1/stats", h.GetStats)
	r.Get("/api/v1/records", h.ListRecords)
	r.Get("/api/v1/records/{productID}", h.GetRecord)
	return r
}

func TestCreateJobEndpoint(t *testing.T) {
	h, _ := testHandlers(t)
	router := testRouter(h)

	body, _ := json.Marshal(CreateJobRequest{
		Targets: []string{"https://www.aliexpress.com/item/1.html"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateJobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, jobs.StatusPending, resp.Status)
}

func TestCreateJobRequiresInput(t *testing.T) {
	h, _ := testHandlers(t)
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJobNotFound(t *testing.T) {
	h, _ := testHandlers(t)
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelPendingJobEndpoint(t *testing.T) {
	h, manager := testHandlers(t)
	router := testRouter(h)

	job, err := manager.CreateJob("", []string{"https://www.aliexpress.com/item/1.html"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	got, _ := manager.GetJob(job.ID)
	assert.Equal(t, jobs.StatusCancelled, got.Status)
}

func TestResumeWithNoBlockedJob(t *testing.T) {
	h, _ := testHandlers(t)
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resume", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecordEndpoints(t *testing.T) {
	h, _ := testHandlers(t)
	router := testRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/records/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
