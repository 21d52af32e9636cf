package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"delegues-backend/internal/logger"
)

var (
	ErrQueueFull    = errors.New("email queue is full")
	ErrQueueStopped = errors.New("email queue is stopped")
)

type mailJob struct {
	id     string
	ctx    context.Context
	msg    Message
	result chan error
}

// MailQueue sends emails from a pool of workers. Every job reports its
// outcome on its own result channel; there is no automatic retry.
type MailQueue struct {
	sender  Sender
	jobs    chan *mailJob
	workers int
	timeout time.Duration
	metrics *Metrics

	mu      sync.RWMutex
	started bool
	stopped bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

func NewMailQueue(sender Sender, workers, queueSize int, timeout time.Duration, metrics *Metrics) *MailQueue {
	if workers <= 0 {
		workers = 1
	}
	return &MailQueue{
		sender:  sender,
		jobs:    make(chan *mailJob, queueSize),
		workers: workers,
		timeout: timeout,
		metrics: metrics,
		quit:    make(chan struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (q *MailQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop waits for in-flight sends, then fails every queued job with
// ErrQueueStopped.
func (q *MailQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.quit)
	q.mu.Unlock()

	q.wg.Wait()
	for {
		select {
		case job := <-q.jobs:
			job.result <- ErrQueueStopped
		default:
			q.metrics.setMailQueueDepth(0)
			return
		}
	}
}

// Enqueue adds msg to the queue without blocking.
func (q *MailQueue) Enqueue(ctx context.Context, msg Message) (<-chan error, error) {
	job := &mailJob{
		id:     uuid.NewString(),
		ctx:    context.WithoutCancel(ctx),
		msg:    msg,
		result: make(chan error, 1),
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return nil, ErrQueueStopped
	}
	select {
	case q.jobs <- job:
		q.metrics.setMailQueueDepth(len(q.jobs))
		return job.result, nil
	default:
		q.metrics.observeMail("queue_full")
		return nil, ErrQueueFull
	}
}

func (q *MailQueue) worker(id int) {
	defer q.wg.Done()
	log := logger.WithComponent("mailqueue").With("worker", id)
	log.Debug("Email worker started")

	for {
		select {
		case <-q.quit:
			log.Debug("Email worker stopping")
			return
		case job := <-q.jobs:
			q.metrics.setMailQueueDepth(len(q.jobs))
			q.process(log, job)
		}
	}
}

func (q *MailQueue) process(log *slog.Logger, job *mailJob) {
	ctx := job.ctx
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	err := q.sender.Send(ctx, job.msg)
	if err != nil {
		log.Error("Failed to send email", "job", job.id, "to", job.msg.To, "error", err)
		q.metrics.observeMail("failed")
	} else {
		log.Info("Email sent", "job", job.id, "to", job.msg.To)
		q.metrics.observeMail("sent")
	}
	job.result <- err
}
