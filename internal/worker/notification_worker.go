package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

const (
	defaultWorkers    = 4
	defaultQueueSize  = 256
	defaultJobTimeout = time.Minute
)

type job struct {
	handler events.EventHandler
	event   events.Event
}

// Pool runs event handlers on a fixed set of goroutines.
type Pool struct {
	logger  *zap.Logger
	workers int
	timeout time.Duration
	queue   chan job

	mu      sync.RWMutex
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewPool builds a pool. Non-positive sizes fall back to defaults.
func NewPool(logger *zap.Logger, workers, queueSize int) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Pool{
		logger:  logger,
		workers: workers,
		timeout: defaultJobTimeout,
		queue:   make(chan job, queueSize),
	}
}

// Start launches the workers. Jobs run with a context derived from ctx.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for j := range p.queue {
		p.execute(ctx, j)
	}
}

func (p *Pool) execute(ctx context.Context, j job) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := j.handler(jobCtx, j.event); err != nil {
		p.logger.Warn("background handler failed",
			zap.String("event_type", string(j.event.Type)),
			zap.String("event_id", j.event.ID),
			zap.String("ticket_id", j.event.TicketID),
			zap.Error(err))
	}
}

// Wrap returns a handler that enqueues the event for h. When the queue is
// full, or the pool is stopped, h runs on the caller's goroutine.
func (p *Pool) Wrap(h events.EventHandler) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		if p.enqueue(job{handler: h, event: event}) {
			return nil
		}
		p.execute(ctx, job{handler: h, event: event})
		return nil
	}
}

func (p *Pool) enqueue(j job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.started || p.closed {
		return false
	}
	select {
	case p.queue <- j:
		return true
	default:
		p.logger.Warn("background queue full, running inline", zap.String("event_type", string(j.event.Type)))
		return false
	}
}

// Stop drains the queue and waits for running handlers.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

// StartNotificationWorker registers the workflow handlers and starts the pool
// that runs the outbound ones.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, logger *zap.Logger) *Pool {
	pool := NewPool(logger, defaultWorkers, defaultQueueSize)
	if notificationService == nil {
		return pool
	}
	notificationService.RegisterHandlers(pool.Wrap)
	pool.Start(ctx)
	return pool
}
