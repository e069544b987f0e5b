// Package notify delivers "your item was accepted" messages off the request
// path. A Dispatcher queues notifications and a fixed pool of workers hands
// them to a Sender.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"solidarity/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

type Dispatcher struct {
	logger  *logrus.Logger
	sender  Sender
	timeout time.Duration

	queue chan *types.Notification
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
// Each send is bounded by timeout.
func NewDispatcher(logger *logrus.Logger, sender Sender, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	d := &Dispatcher{
		logger:  logger,
		sender:  sender,
		timeout: timeout,
		queue:   make(chan *types.Notification, queueSize),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work(i)
	}

	return d
}

// Notify enqueues n without blocking. A full queue or a closed dispatcher
// is reported to the caller; delivery failures are only logged.
func (d *Dispatcher) Notify(ctx context.Context, n *types.Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) work(worker int) {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(worker, n)
	}
}

func (d *Dispatcher) deliver(worker int, n *types.Notification) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	entry := d.logger.WithFields(logrus.Fields{
		"worker":          worker,
		"notification_id": n.ID,
		"kind":            n.Kind,
		"recipient_id":    n.Recipient.UserID,
	})

	start := time.Now()
	if err := d.sender.Send(ctx, n); err != nil {
		entry.WithError(err).Error("failed to deliver notification")
		return
	}

	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Info("notification delivered")
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
