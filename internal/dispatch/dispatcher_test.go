package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	handled []Kind
}

func (r *recorder) handle(msg Message) {
	r.handled = append(r.handled, msg.Kind)
}

func TestStepHandlesOneMessagePerTick(t *testing.T) {
	rec := &recorder{}
	d := New(Config{Clock: clockwork.NewFakeClock()}, rec.handle)

	d.Enqueue(Skip, nil)
	d.Enqueue(GetIP, nil)

	if !d.Step() {
		t.Fatal("Step() should handle the first message")
	}
	if len(rec.handled) != 1 || rec.handled[0] != Skip {
		t.Fatalf("handled = %v, want [Skip]", rec.handled)
	}
	if d.Queue().Len() != 1 {
		t.Errorf("Queue().Len() = %d, want 1", d.Queue().Len())
	}

	d.Step()
	if d.Step() {
		t.Error("Step() on empty queue should return false")
	}
	if len(rec.handled) != 2 || rec.handled[1] != GetIP {
		t.Errorf("handled = %v, want [Skip GetIP]", rec.handled)
	}
}

func TestStepMergesDueTasksBehindQueuedMessages(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(Config{Clock: clock}, rec.handle)

	d.After(10*time.Second, Connect, nil)
	d.Enqueue(Skip, nil)

	clock.Advance(10 * time.Second)
	for d.Step() {
	}

	if len(rec.handled) != 2 || rec.handled[0] != Skip || rec.handled[1] != Connect {
		t.Errorf("handled = %v, want [Skip Connect]", rec.handled)
	}
}

func TestStepRecoversPanickingHandler(t *testing.T) {
	calls := 0
	d := New(Config{Clock: clockwork.NewFakeClock()}, func(msg Message) {
		calls++
		if msg.Kind == Init {
			panic("handler bug")
		}
	})

	d.Enqueue(Init, nil)
	d.Enqueue(Connect, nil)

	d.Step()
	d.Step()

	if calls != 2 {
		t.Errorf("handler calls = %d, want 2 (panic must not stop the loop)", calls)
	}
}

func TestStepDropsUnknownKinds(t *testing.T) {
	rec := &recorder{}
	d := New(Config{Clock: clockwork.NewFakeClock()}, rec.handle)

	d.Enqueue(Kind(200), nil)
	if !d.Step() {
		t.Fatal("Step() should consume the unknown message")
	}
	if len(rec.handled) != 0 {
		t.Errorf("handler should not see unknown kinds, got %v", rec.handled)
	}
}

func TestStartTicksWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	handled := make(chan Kind, 1)
	d := New(Config{Clock: clock, Tick: 500 * time.Millisecond}, func(msg Message) {
		handled <- msg.Kind
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.Enqueue(Init, nil)
	d.Start(ctx)
	defer d.Stop()

	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}
	clock.Advance(500 * time.Millisecond)

	select {
	case k := <-handled:
		if k != Init {
			t.Errorf("handled %v, want Init", k)
		}
	case <-ctx.Done():
		t.Fatal("tick did not dispatch the queued message")
	}

	if !d.Running() {
		t.Error("Running() should be true after Start()")
	}
}

func TestRestartDropsScheduledTasks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := New(Config{Clock: clock}, func(Message) {})

	ctx := context.Background()
	d.Start(ctx)
	d.After(10*time.Second, Connect, nil)
	d.After(5*time.Minute, APStop, nil)

	d.Start(ctx)
	defer d.Stop()

	if d.Scheduler().Pending() != 0 {
		t.Errorf("Pending() after restart = %d, want 0", d.Scheduler().Pending())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	d := New(Config{Clock: clockwork.NewFakeClock()}, nil)
	d.Stop()

	d.Start(context.Background())
	d.Stop()
	d.Stop()

	if d.Running() {
		t.Error("Running() should be false after Stop()")
	}
}

func TestFlushMergesWithoutHandling(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &recorder{}
	d := New(Config{Clock: clock}, rec.handle)

	d.After(time.Second, APStop, nil)
	if n := d.Flush(); n != 0 {
		t.Errorf("Flush() before due = %d, want 0", n)
	}

	clock.Advance(time.Second)
	if n := d.Flush(); n != 1 {
		t.Errorf("Flush() = %d, want 1", n)
	}
	if kinds := d.Queue().Kinds(); len(kinds) != 1 || kinds[0] != APStop {
		t.Errorf("Queue().Kinds() = %v, want [APStop]", kinds)
	}
	if len(rec.handled) != 0 {
		t.Errorf("Flush() handled %v", rec.handled)
	}
}
