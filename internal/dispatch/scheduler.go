package dispatch

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TaskID identifies a scheduled delayed message
type TaskID uint64

type task struct {
	id     TaskID
	fireAt time.Time
	msg    Message
	index  int
}

// taskHeap orders tasks by fire time, then by scheduling order.
type taskHeap []*task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].id < h[j].id
	}
	return h[i].fireAt.Before(h[j].fireAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler holds messages that should be enqueued after a delay. Due tasks are
// merged into the dispatch queue at tick boundaries, so delayed messages never
// interrupt a running handler and their order is deterministic.
type Scheduler struct {
	clock clockwork.Clock

	mu     sync.Mutex
	tasks  taskHeap
	byID   map[TaskID]*task
	nextID TaskID
}

// NewScheduler creates a scheduler reading time from clock.
// A nil clock means the real wall clock.
func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock: clock,
		byID:  make(map[TaskID]*task),
	}
}

// After schedules kind to be enqueued once delay has elapsed.
func (s *Scheduler) After(delay time.Duration, kind Kind, params Params) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &task{
		id:     s.nextID,
		fireAt: s.clock.Now().Add(delay),
		msg:    Message{Kind: kind, Params: params},
	}
	heap.Push(&s.tasks, t)
	s.byID[t.id] = t
	return t.id
}

// Cancel removes a pending task. It reports whether the task was still pending.
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.tasks, t.index)
	delete(s.byID, id)
	return true
}

// Due pops every task whose fire time is at or before now, in firing order.
func (s *Scheduler) Due(now time.Time) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Message
	for len(s.tasks) > 0 && !s.tasks[0].fireAt.After(now) {
		t := heap.Pop(&s.tasks).(*task)
		delete(s.byID, t.id)
		due = append(due, t.msg)
	}
	return due
}

// Pending returns the number of tasks that have not fired yet
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// PendingKinds returns the kinds of pending tasks in firing order.
func (s *Scheduler) PendingKinds() []Kind {
	s.mu.Lock()
	sorted := make([]*task, len(s.tasks))
	copy(sorted, s.tasks)
	s.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].fireAt.Equal(sorted[j].fireAt) {
			return sorted[i].id < sorted[j].id
		}
		return sorted[i].fireAt.Before(sorted[j].fireAt)
	})

	kinds := make([]Kind, len(sorted))
	for i, t := range sorted {
		kinds[i] = t.msg.Kind
	}
	return kinds
}

// Reset drops every pending task
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.tasks = nil
	s.byID = make(map[TaskID]*task)
	s.mu.Unlock()
}
