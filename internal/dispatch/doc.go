// Package dispatch implements the cooperative message loop that drives the
// ZooThing connection state machine.
//
// # Model
//
// All state changes are triggered by messages. Producers (adapter callbacks,
// the configuration portal, timers) only enqueue; the dispatcher is the single
// consumer. Every tick it:
//  1. Moves scheduled tasks that are due into the queue (firing order)
//  2. Dequeues at most one message
//  3. Runs the handler for it synchronously
//
// Handlers never block. "Retry after 10 seconds" is expressed as
//
//	d.After(10*time.Second, dispatch.Connect, nil)
//
// which parks the message in the Scheduler until a later tick picks it up.
//
// # Restart
//
// Start may be called more than once. Each call cancels the previous tick loop
// and drops all outstanding scheduled tasks before the new loop begins.
//
// # Testing
//
// The dispatcher reads time from a clockwork.Clock. Tests use a fake clock and
// call Step directly to execute ticks deterministically:
//
//	clock := clockwork.NewFakeClock()
//	d := dispatch.New(dispatch.Config{Clock: clock}, handler)
//	d.After(time.Second, dispatch.Connect, nil)
//	clock.Advance(time.Second)
//	d.Step() // handles Connect
package dispatch
