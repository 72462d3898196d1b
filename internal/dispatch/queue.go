package dispatch

import "sync"

// Queue is an unbounded FIFO of pending messages. It is safe for concurrent
// producers; the dispatcher is its only consumer.
type Queue struct {
	mu    sync.Mutex
	items []Message
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a message to the tail. It never blocks and never rejects.
func (q *Queue) Enqueue(kind Kind, params Params) {
	q.push(Message{Kind: kind, Params: params})
}

func (q *Queue) push(msgs ...Message) {
	q.mu.Lock()
	q.items = append(q.items, msgs...)
	q.mu.Unlock()
}

// Dequeue removes and returns the head message. ok is false when the queue is empty.
func (q *Queue) Dequeue() (msg Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Message{}, false
	}

	msg = q.items[0]
	q.items[0] = Message{}
	q.items = q.items[1:]

	// Release the backing array once drained so a burst does not pin memory.
	if len(q.items) == 0 {
		q.items = nil
	}
	return msg, true
}

// Len returns the number of pending messages
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Kinds returns the kinds of the pending messages in queue order.
func (q *Queue) Kinds() []Kind {
	q.mu.Lock()
	defer q.mu.Unlock()

	kinds := make([]Kind, len(q.items))
	for i, m := range q.items {
		kinds[i] = m.Kind
	}
	return kinds
}

// Clear drops every pending message
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
