package email

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/memcrypt/console/pkg/async"
	"github.com/memcrypt/console/pkg/observability"
)

// Deliverer sends a message synchronously
type Deliverer interface {
	Send(ctx context.Context, msg Message) error
}

// QueueConfig sizes the background delivery pool
type QueueConfig struct {
	Workers int
	Size    int
	// SendTimeout bounds each delivery attempt
	SendTimeout time.Duration
}

// Queue delivers mail in the background so callers never wait on SMTP.
// A full queue drops the message; failures are logged and counted, never
// returned to the caller that enqueued.
type Queue struct {
	pool     *async.WorkerPool
	sender   Deliverer
	logger   *observability.Logger
	metrics  *observability.Metrics
	drainerC chan struct{}
}

// NewQueue starts the delivery workers
func NewQueue(ctx context.Context, sender Deliverer, cfg QueueConfig, logger *observability.Logger, metrics *observability.Metrics) *Queue {
	if logger == nil {
		logger = observability.NewLogger(observability.ErrorLevel, io.Discard)
	}
	logger = logger.WithField("component", "email_queue")

	q := &Queue{
		pool: async.NewWorkerPool(ctx, async.PoolConfig{
			Workers:   cfg.Workers,
			QueueSize: cfg.Size,
			TaskName:  "email delivery",
			Timeout:   cfg.SendTimeout,
			Logger:    logger,
		}),
		sender:   sender,
		logger:   logger,
		metrics:  metrics,
		drainerC: make(chan struct{}),
	}
	go q.drainErrors()
	return q
}

// Enqueue schedules msg for delivery. Request-scoped values of ctx (request
// id, logger) are kept but its cancellation is not.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	detached := context.WithoutCancel(ctx)

	err := q.pool.TrySubmit(func(taskCtx context.Context) error {
		defer q.updateDepth()

		sendCtx, cancel := mergeDeadline(detached, taskCtx)
		defer cancel()

		if err := q.sender.Send(sendCtx, msg); err != nil {
			return fmt.Errorf("deliver %s email to %s: %w", msg.Template, msg.To, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, async.ErrPoolFull) {
			q.count(msg.Template, "dropped")
		}
		return fmt.Errorf("queue %s email: %w", msg.Template, err)
	}

	q.count(msg.Template, "queued")
	q.updateDepth()
	return nil
}

// Shutdown stops accepting mail and waits up to timeout for the queue to drain
func (q *Queue) Shutdown(timeout time.Duration) error {
	err := q.pool.Shutdown(timeout)
	// Let the drainer pick up errors reported by the last tasks
	select {
	case <-q.drainerC:
	case <-time.After(100 * time.Millisecond):
	}
	return err
}

// Pending returns the number of messages waiting for a worker
func (q *Queue) Pending() int {
	return q.pool.Pending()
}

func (q *Queue) drainErrors() {
	defer close(q.drainerC)
	for {
		select {
		case err := <-q.pool.Errors():
			q.logger.WithError(err).Warn("Background email delivery failed")
		case <-q.pool.Done():
			// drain what is left, then stop
			for {
				select {
				case err := <-q.pool.Errors():
					q.logger.WithError(err).Warn("Background email delivery failed")
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) updateDepth() {
	if q.metrics != nil {
		q.metrics.EmailQueueDepth.Set(float64(q.pool.Pending()))
	}
}

func (q *Queue) count(template, status string) {
	if q.metrics != nil {
		q.metrics.EmailsTotal.WithLabelValues(template, status).Inc()
	}
}

// mergeDeadline returns a context carrying the values of base that is
// cancelled when limit is.
func mergeDeadline(base, limit context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(base)
	stop := context.AfterFunc(limit, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
