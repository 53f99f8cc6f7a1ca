package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tenant-auth-plane/internal/metrics"
)

// emitTimeout bounds a single sink delivery. Deliveries run detached from the
// producing request's context.
const emitTimeout = 5 * time.Second

// Dispatcher fans events from request paths to a Sink through a bounded
// buffer. Record never blocks: when the buffer is full the event is dropped
// and counted.
type Dispatcher struct {
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	logger    *slog.Logger
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher delivering to sink with the given buffer
// capacity.
func NewDispatcher(sink Sink, buffer int, logger *slog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		sink:   sink,
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		case <-d.done:
			// Drain whatever is buffered, then stop.
			for {
				select {
				case e := <-d.ch:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := d.sink.Emit(ctx, e); err != nil {
		d.logger.Warn("audit emit failed", "action", e.Action, "error", err)
	}
}

// Record enqueues the event without blocking. The producing request's context
// is not used for delivery; cancellation must not lose already-queued events.
func (d *Dispatcher) Record(ctx context.Context, e Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if e.TenantID == "" {
		e.TenantID = SentinelTenant
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	select {
	case d.ch <- e:
	case <-d.done:
	default:
		d.dropped.Add(1)
		metrics.AuditDropped.Inc()
	}
}

// Dropped returns how many events were dropped because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close drains buffered events and stops the dispatcher.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	d.wg.Wait()
}
