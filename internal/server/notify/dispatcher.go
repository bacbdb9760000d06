package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/lemonauth/internal/logging"
)

// Dispatcher queues messages and delivers them from a worker goroutine so a
// slow or failing Sender never blocks a request. When the queue is full the
// message is dropped and counted.
type Dispatcher struct {
	sender  Sender
	logger  logging.Logger
	timeout time.Duration

	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once

	// mu orders enqueues against Close so nothing lands in ch after the
	// worker has drained it.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker. timeout bounds each Send call.
func NewDispatcher(sender Sender, logger logging.Logger, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	d := &Dispatcher{
		sender:  sender,
		logger:  logger.With("module", "notifier"),
		timeout: timeout,
		ch:      make(chan Message, queueSize),
		done:    make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		d.failed.Add(1)
		d.logger.Error(ctx, "notification delivery failed", "kind", msg.Kind, "error", err)
		return
	}
	d.logger.Debug(ctx, "notification delivered", "kind", msg.Kind)
}

// Notify enqueues msg without blocking. The request context is not carried
// into delivery, so cancelled requests still get their email. Messages that
// arrive after Close are counted as dropped.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, msg, "notifier closed, message dropped")
		return
	}
	select {
	case d.ch <- msg:
	default:
		d.drop(ctx, msg, "notification queue full, message dropped")
	}
}

func (d *Dispatcher) drop(ctx context.Context, msg Message, reason string) {
	d.dropped.Add(1)
	d.logger.Warn(ctx, reason, "kind", msg.Kind)
}

// Close stops accepting messages, drains the queue and waits for the worker.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()

		d.wg.Wait()
	})
}

// Dropped returns how many messages were discarded because the queue was
// full or the dispatcher was closed.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }

// Failed returns how many deliveries returned an error.
func (d *Dispatcher) Failed() uint64 { return d.failed.Load() }
