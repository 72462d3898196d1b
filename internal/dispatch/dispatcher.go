package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/muurk/zoothing/internal/logging"
)

// DefaultTick is the default dispatcher tick period
const DefaultTick = 500 * time.Millisecond

// Handler processes one message. Handlers run on the dispatcher goroutine, one
// at a time, and must not block: waiting is expressed with Dispatcher.After.
type Handler func(Message)

// Config holds dispatcher settings
type Config struct {
	Tick  time.Duration   // Tick period (default 500ms)
	Clock clockwork.Clock // Time source (default real clock)
}

// Dispatcher drains the queue one message per tick and hands each message to
// the registered handler.
type Dispatcher struct {
	queue   *Queue
	sched   *Scheduler
	clock   clockwork.Clock
	tick    time.Duration
	handler Handler

	// stepMu serializes handler execution even while an old loop is winding
	// down after a restart.
	stepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a dispatcher that delivers messages to handler.
func New(cfg Config, handler Handler) *Dispatcher {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}

	return &Dispatcher{
		queue:   NewQueue(),
		sched:   NewScheduler(cfg.Clock),
		clock:   cfg.Clock,
		tick:    cfg.Tick,
		handler: handler,
	}
}

// Queue returns the dispatch queue
func (d *Dispatcher) Queue() *Queue {
	return d.queue
}

// Scheduler returns the delayed-task scheduler
func (d *Dispatcher) Scheduler() *Scheduler {
	return d.sched
}

// Enqueue appends a message for a later tick.
func (d *Dispatcher) Enqueue(kind Kind, params Params) {
	d.queue.Enqueue(kind, params)
}

// After enqueues kind once delay has elapsed.
func (d *Dispatcher) After(delay time.Duration, kind Kind, params Params) TaskID {
	id := d.sched.After(delay, kind, params)
	logging.Debug("Scheduled delayed message",
		zap.String("kind", kind.String()),
		zap.Duration("delay", delay),
		zap.Uint64("task_id", uint64(id)),
	)
	return id
}

// Step runs one tick: due scheduled tasks are merged into the queue, then at
// most one message is dequeued and handled. It reports whether a message was
// handled.
func (d *Dispatcher) Step() bool {
	d.stepMu.Lock()
	defer d.stepMu.Unlock()

	d.Flush()

	msg, ok := d.queue.Dequeue()
	if !ok {
		return false
	}

	logging.LogMessage(msg.Kind.String(), d.queue.Len())
	d.handle(msg)
	return true
}

// Flush merges due scheduled tasks into the queue without handling anything.
// It returns the number of tasks merged.
func (d *Dispatcher) Flush() int {
	due := d.sched.Due(d.clock.Now())
	if len(due) > 0 {
		d.queue.push(due...)
	}
	return len(due)
}

func (d *Dispatcher) handle(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Message handler panicked",
				zap.String("kind", msg.Kind.String()),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if !msg.Kind.Valid() {
		logging.Warn("Unknown message", zap.Int("kind", int(msg.Kind)))
		return
	}
	if d.handler != nil {
		d.handler(msg)
	}
}

// Start begins ticking. Starting an already running dispatcher cancels the
// previous loop first and drops every outstanding scheduled task, so a
// restart never leaves two reconnect or AP-lifetime chains racing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		logging.Debug("Dispatcher restarted, previous loop cancelled",
			zap.Int("dropped_tasks", d.sched.Pending()),
		)
	}
	d.sched.Reset()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.cancel = cancel
	d.done = done

	ticker := d.clock.NewTicker(d.tick)
	go d.loop(loopCtx, ticker, done)
}

func (d *Dispatcher) loop(ctx context.Context, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// A restart may cancel us while the tick is pending.
			if ctx.Err() != nil {
				return
			}
			d.Step()
		}
	}
}

// Stop cancels the loop and waits for it to exit. It must not be called from
// within a handler.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the tick loop is active
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}
