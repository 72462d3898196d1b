package dispatch

import (
	"errors"
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(SaveSettings, nil)
	q.Enqueue(StopServer, nil)
	q.Enqueue(Connect, nil)

	want := []Kind{SaveSettings, StopServer, Connect}
	for i, k := range want {
		msg, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue() #%d returned empty", i)
		}
		if msg.Kind != k {
			t.Errorf("Dequeue() #%d = %v, want %v", i, msg.Kind, k)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("Dequeue() on empty queue should report ok=false")
	}
}

func TestQueueKeepsDuplicates(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 3; i++ {
		q.Enqueue(Skip, nil)
	}

	if q.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (no deduplication)", q.Len())
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(Skip, nil)
			}
		}()
	}
	wg.Wait()

	if q.Len() != 800 {
		t.Errorf("Len() = %d, want 800", q.Len())
	}
}

func TestQueueKindsAndClear(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Init, nil)
	q.Enqueue(StartAP, nil)

	kinds := q.Kinds()
	if len(kinds) != 2 || kinds[0] != Init || kinds[1] != StartAP {
		t.Errorf("Kinds() = %v, want [Init StartAP]", kinds)
	}

	q.Clear()
	if q.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", q.Len())
	}
}

func TestMessageErr(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"no params", Message{Kind: ConnectResult}, nil},
		{"nil error", Message{Kind: ConnectResult, Params: WithErr(nil)}, nil},
		{"with error", Message{Kind: ConnectResult, Params: WithErr(boom)}, boom},
		{"wrong type", Message{Kind: ConnectResult, Params: Params{ParamErr: "boom"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Err(); got != tt.want {
				t.Errorf("Err() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if Reconnect.String() != "Reconnect" {
		t.Errorf("Reconnect.String() = %q", Reconnect.String())
	}
	if Kind(99).String() != "Kind(99)" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
	if Kind(0).Valid() {
		t.Error("Kind(0) should not be valid")
	}
}
