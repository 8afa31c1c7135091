package printer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job states
const (
	JobQueued    = "queued"
	JobPrinting  = "printing"
	JobFailed    = "failed"
	JobCompleted = "completed"
)

const (
	defaultQueueInterval = 100 * time.Millisecond
	defaultRetryDelay    = time.Second
)

// PrintJob is one ticket buffer sent Copies times to a printer
type PrintJob struct {
	ID          string    `json:"id"`
	PrinterID   string    `json:"printer_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Data        []byte    `json:"-"`
	Copies      int       `json:"copies"`
	Printed     int       `json:"printed"`
	Retries     int       `json:"retries"`
	Status      string    `json:"status"`
	Error       error     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	nextAttempt time.Time
}

// Summary returns the job as a flat map for JSON responses and events
func (j *PrintJob) Summary() map[string]interface{} {
	s := map[string]interface{}{
		"id":           j.ID,
		"printer_id":   j.PrinterID,
		"order_number": j.OrderNumber,
		"status":       j.Status,
		"copies":       j.Copies,
		"printed":      j.Printed,
		"retries":      j.Retries,
		"bytes":        len(j.Data),
		"created_at":   j.CreatedAt,
		"updated_at":   j.UpdatedAt,
	}
	if j.Error != nil {
		s["error"] = j.Error.Error()
	}
	return s
}

// PrintQueue manages print jobs with retry logic
type PrintQueue struct {
	jobs       []*PrintJob
	mu         sync.Mutex
	pool       *ConnectionPool
	manager    *Manager
	maxRetries int
	interval   time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
	onUpdate   func(PrintJob)
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// QueueOption configures a PrintQueue
type QueueOption func(*PrintQueue)

// WithInterval sets how often the worker polls for queued jobs
func WithInterval(d time.Duration) QueueOption {
	return func(q *PrintQueue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithRetryDelay sets the wait before a failed job is attempted again
func WithRetryDelay(d time.Duration) QueueOption {
	return func(q *PrintQueue) {
		if d >= 0 {
			q.retryDelay = d
		}
	}
}

// WithLogger sets the queue logger
func WithLogger(logger *zap.Logger) QueueOption {
	return func(q *PrintQueue) {
		if logger != nil {
			q.logger = logger.Named("queue")
		}
	}
}

// NewPrintQueue creates a print queue and starts its worker. A job fails after maxRetries attempts.
func NewPrintQueue(pool *ConnectionPool, manager *Manager, maxRetries int, opts ...QueueOption) *PrintQueue {
	ctx, cancel := context.WithCancel(context.Background())

	if maxRetries < 1 {
		maxRetries = 1
	}

	q := &PrintQueue{
		jobs:       make([]*PrintJob, 0),
		pool:       pool,
		manager:    manager,
		maxRetries: maxRetries,
		interval:   defaultQueueInterval,
		retryDelay: defaultRetryDelay,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// OnJobUpdate sets a callback invoked with a snapshot after every state change
func (q *PrintQueue) OnJobUpdate(callback func(PrintJob)) {
	q.mu.Lock()
	q.onUpdate = callback
	q.mu.Unlock()
}

// Enqueue adds a ticket buffer to the queue and returns the job ID
func (q *PrintQueue) Enqueue(printerID, orderNumber string, data []byte, copies int) string {
	if copies < 1 {
		copies = 1
	}

	now := time.Now()
	job := &PrintJob{
		ID:          uuid.New().String(),
		PrinterID:   printerID,
		OrderNumber: orderNumber,
		Data:        data,
		Copies:      copies,
		Status:      JobQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	snapshot, callback := *job, q.onUpdate
	q.mu.Unlock()

	q.logger.Debug("job queued",
		zap.String("job_id", job.ID),
		zap.String("printer_id", printerID),
		zap.String("order", orderNumber),
		zap.Int("bytes", len(data)),
		zap.Int("copies", copies))
	notify(callback, snapshot)

	return job.ID
}

func (q *PrintQueue) worker() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processNextJob()
		}
	}
}

func (q *PrintQueue) processNextJob() {
	now := time.Now()

	q.mu.Lock()
	var job *PrintJob
	for _, j := range q.jobs {
		if j.Status == JobQueued && !now.Before(j.nextAttempt) {
			job = j
			job.Status = JobPrinting
			job.UpdatedAt = now
			break
		}
	}
	if job == nil {
		q.mu.Unlock()
		return
	}
	snapshot, callback := *job, q.onUpdate
	q.mu.Unlock()

	notify(callback, snapshot)

	err := q.printJob(job)

	q.mu.Lock()
	job.UpdatedAt = time.Now()
	if err != nil {
		job.Retries++
		job.Error = err

		if job.Retries >= q.maxRetries {
			job.Status = JobFailed
			q.logger.Error("print job failed",
				zap.String("job_id", job.ID),
				zap.Int("attempts", job.Retries),
				zap.Error(err))
		} else {
			job.Status = JobQueued
			job.nextAttempt = job.UpdatedAt.Add(q.retryDelay)
			q.logger.Warn("print job failed, retrying",
				zap.String("job_id", job.ID),
				zap.Int("attempt", job.Retries),
				zap.Int("max_attempts", q.maxRetries),
				zap.Error(err))
		}
	} else {
		job.Status = JobCompleted
		job.Error = nil
		q.logger.Info("print job completed",
			zap.String("job_id", job.ID),
			zap.String("printer_id", job.PrinterID),
			zap.Int("copies", job.Copies))
	}
	snapshot, callback = *job, q.onUpdate
	q.mu.Unlock()

	notify(callback, snapshot)
}

// printJob sends the copies still missing. Copies printed before a failure are not repeated.
func (q *PrintQueue) printJob(job *PrintJob) error {
	if !q.pool.IsConnected(job.PrinterID) {
		printer := q.manager.GetPrinter(job.PrinterID)
		if printer == nil {
			return fmt.Errorf("%w: %s", ErrPrinterNotFound, job.PrinterID)
		}

		if err := q.pool.Connect(printer); err != nil {
			return fmt.Errorf("failed to connect to printer: %w", err)
		}
	}

	q.mu.Lock()
	remaining := job.Copies - job.Printed
	q.mu.Unlock()

	for i := 0; i < remaining; i++ {
		if err := q.pool.Print(job.PrinterID, job.Data); err != nil {
			return err
		}
		q.mu.Lock()
		job.Printed++
		q.mu.Unlock()
	}
	return nil
}

// notify runs outside the lock so callbacks may query the queue
func notify(callback func(PrintJob), snapshot PrintJob) {
	if callback != nil {
		callback(snapshot)
	}
}

// GetJob returns a copy of the job, or ErrJobNotFound
func (q *PrintQueue) GetJob(jobID string) (*PrintJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.ID == jobID {
			jobCopy := *job
			return &jobCopy, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
}

// GetAllJobs returns copies of all jobs in submission order
func (q *PrintQueue) GetAllJobs() []*PrintJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]*PrintJob, len(q.jobs))
	for i, job := range q.jobs {
		jobCopy := *job
		jobs[i] = &jobCopy
	}

	return jobs
}

// ClearCompleted removes completed jobs and returns how many were removed
func (q *PrintQueue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]*PrintJob, 0, len(q.jobs))
	for _, job := range q.jobs {
		if job.Status != JobCompleted {
			filtered = append(filtered, job)
		}
	}

	removed := len(q.jobs) - len(filtered)
	q.jobs = filtered
	return removed
}

// Stop stops the print queue worker
func (q *PrintQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}
