package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/parser"
	"github.com/maltedev/aliexpress-price-scraper/internal/queue"
	"github.com/maltedev/aliexpress-price-scraper/internal/ratelimit"
	"github.com/maltedev/aliexpress-price-scraper/internal/scraper"
)

// Job statuses over a job's lifetime. A blocked job is parked on a captcha
// challenge and waits for an operator resume.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusBlocked   = "blocked"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Job is one queued or running acquisition batch.
type Job struct {
	ID              string     `json:"id"`
	ListURL         string     `json:"list_url,omitempty"`
	Targets         []string   `json:"targets,omitempty"`
	Status          string     `json:"status"`
	ProductsScraped int        `json:"products_scraped"`
	ProductsFailed  int        `json:"products_failed"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// Stats summarizes the manager's job history.
type Stats struct {
	TotalJobs     int `json:"total_jobs"`
	PendingJobs   int `json:"pending_jobs"`
	RunningJobs   int `json:"running_jobs"`
	BlockedJobs   int `json:"blocked_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
	QueueSize     int `json:"queue_size"`
}

// DriverFactory opens a fresh page for one job.
type DriverFactory func() (browser.Driver, error)

type runningJob struct {
	jobID  string
	orch   *scraper.Orchestrator
	cancel context.CancelFunc
}

// Manager queues jobs and runs them one at a time on a background worker.
// One job owns the page at a time; pacing between jobs adapts to failures.
type Manager struct {
	factory DriverFactory
	cfg     *config.Config
	sinks   scraper.RecordSink
	queue   *queue.InMemoryQueue
	limiter *ratelimit.AdaptiveRateLimiter
	logger  *slog.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string
	running *runningJob
}

func NewManager(factory DriverFactory, cfg *config.Config, sinks scraper.RecordSink, logger *slog.Logger) *Manager {
	return &Manager{
		factory: factory,
		cfg:     cfg,
		sinks:   sinks,
		queue:   queue.NewInMemoryQueue(),
		limiter: ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.WaitBetweenProducts.Min, cfg.Scraper.WaitBetweenProducts.Max),
		logger:  logger.With("component", "job_manager"),
		jobs:    make(map[string]*Job),
	}
}

// CreateJob queues a new acquisition batch from a listing URL or an
// explicit target list.
func (m *Manager) CreateJob(listURL string, targets []string) (*Job, error) {
	if listURL == "" && len(targets) == 0 {
		return nil, fmt.Errorf("either list_url or targets is required")
	}

	job := &Job{
		ID:        uuid.New().String(),
		ListURL:   listURL,
		Targets:   targets,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	if err := m.queue.Push(&queue.Task{ID: job.ID, ListURL: listURL, Targets: targets}); err != nil {
		m.setStatus(job.ID, StatusFailed, err)
		return nil, fmt.Errorf("failed to queue job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "list_url", listURL, "targets", len(targets))
	return job, nil
}

// GetJob returns a copy of the job.
func (m *Manager) GetJob(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, false
	}
	copied := *job
	return &copied, true
}

// ListJobs returns all jobs, newest first.
func (m *Manager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		copied := *m.jobs[m.order[i]]
		jobs = append(jobs, &copied)
	}
	return jobs
}

// GetStats summarizes jobs by status.
func (m *Manager) GetStats() *Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalJobs: len(m.jobs),
		QueueSize: m.queue.Size(),
	}
	for _, job := range m.jobs {
		switch job.Status {
		case StatusPending:
			stats.PendingJobs++
		case StatusRunning:
			stats.RunningJobs++
		case StatusBlocked:
			stats.BlockedJobs++
		case StatusCompleted:
			stats.CompletedJobs++
		case StatusFailed, StatusCancelled:
			stats.FailedJobs++
		}
	}
	return stats
}

// Resume unblocks the running job if it is parked on a captcha.
func (m *Manager) Resume() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.running == nil {
		return false
	}
	m.running.orch.Resume()
	return true
}

// Cancel stops a running job or withdraws a pending one.
func (m *Manager) Cancel(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	switch job.Status {
	case StatusRunning, StatusBlocked:
		if m.running != nil && m.running.jobID == jobID {
			m.running.cancel()
			return nil
		}
		return fmt.Errorf("job %s is not the active job", jobID)
	case StatusPending:
		job.Status = StatusCancelled
		now := time.Now()
		job.CompletedAt = &now
		return nil
	default:
		return fmt.Errorf("job %s already finished", jobID)
	}
}

// StartWorker drains the queue until the context ends.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			m.logger.Info("job worker stopping", "reason", err)
			return
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		m.runJob(ctx, task)
	}
}

func (m *Manager) runJob(ctx context.Context, task *queue.Task) {
	m.mu.Lock()
	job, exists := m.jobs[task.ID]
	if !exists || job.Status != StatusPending {
		m.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = StatusRunning
	job.StartedAt = &now
	m.mu.Unlock()

	m.logger.Info("processing job", "id", task.ID)

	driver, err := m.factory()
	if err != nil {
		m.logger.Error("failed to open page", "job", task.ID, "error", err)
		m.setStatus(task.ID, StatusFailed, err)
		m.limiter.RecordError()
		return
	}

	orch := scraper.NewOrchestrator(driver, m.cfg, m.quoteSource(driver), m.sinks, m.logger)
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.mu.Lock()
	m.running = &runningJob{jobID: task.ID, orch: orch, cancel: cancel}
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.consumeEvents(task.ID, orch)
	}()

	if task.ListURL != "" {
		err = orch.RunListing(jobCtx, task.ListURL)
	} else {
		err = orch.Run(jobCtx, task.Targets)
	}
	wg.Wait()

	m.mu.Lock()
	m.running = nil
	m.mu.Unlock()

	switch {
	case err == nil:
		m.setStatus(task.ID, StatusCompleted, nil)
		m.limiter.RecordSuccess()
		m.logger.Info("job completed", "id", task.ID)
	case jobCtx.Err() != nil:
		m.setStatus(task.ID, StatusCancelled, nil)
		m.logger.Info("job cancelled", "id", task.ID)
	default:
		m.setStatus(task.ID, StatusFailed, err)
		m.limiter.RecordError()
		m.logger.Error("job failed", "id", task.ID, "error", err)
	}
}

// quoteSource wires the competitor collector onto the job's page when
// quote collection is enabled.
func (m *Manager) quoteSource(driver browser.Driver) scraper.QuoteSource {
	if !m.cfg.Scraper.EnableCompetitorSearch {
		return nil
	}
	return scraper.NewQuoteCollector(driver, parser.NewAmazonSearchParser(), m.cfg.Scraper, m.logger)
}

// consumeEvents mirrors the orchestrator's progress into the job record.
func (m *Manager) consumeEvents(jobID string, orch *scraper.Orchestrator) {
	for event := range orch.Events() {
		m.mu.Lock()
		job, exists := m.jobs[jobID]
		if !exists {
			m.mu.Unlock()
			continue
		}
		switch event.Kind {
		case scraper.EventItemScraped:
			job.ProductsScraped++
		case scraper.EventError:
			job.ProductsFailed++
		case scraper.EventCaptchaBlocked:
			job.Status = StatusBlocked
		case scraper.EventCaptchaCleared:
			job.Status = StatusRunning
		}
		m.mu.Unlock()
	}
}

func (m *Manager) setStatus(jobID, status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return
	}
	job.Status = status
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Error = err.Error()
	}
}
