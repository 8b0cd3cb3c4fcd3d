package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fineprint/internal/common"
)

type WorkerQueue struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewWorkerQueue(logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &WorkerQueue{
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Second,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *WorkerQueue) run(workerID int, job Job) {
	log := q.logger.With("worker_id", workerID, "job_id", job.ID, "kind", job.Kind)
	if job.TraceID != "" {
		log = log.With("req_id", job.TraceID)
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("async.job.panic", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Error("async.job.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return
	}
	log.Debug("async.job.done",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"queued_ms", start.Sub(job.SubmittedAt).Milliseconds())
}

// Enqueue never blocks: a full queue rejects the job with ErrQueueFull.
func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = common.RequestIDFromContext(ctx)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "job_id", job.ID, "kind", job.Kind)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueued", "job_id", job.ID, "kind", job.Kind, "depth", len(q.ch))
		return nil
	default:
		q.logger.Warn("async.enqueue.full", "job_id", job.ID, "kind", job.Kind, "capacity", cap(q.ch))
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
