package rest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/neo6systems/neo6/internal/router"
)

// State is the /status/{id} lifecycle a queued async invocation moves
// through.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
	StateError   State = "error"
)

type asyncEntry struct {
	state    State
	response router.Response
}

// AsyncQueue backs /invoke-async: it bounds the number of in-flight
// invocations (default 1024 per §4.6) and answers /status/{id} lookups.
type AsyncQueue struct {
	mu      sync.Mutex
	entries map[string]*asyncEntry
	sem     chan struct{}
}

// NewAsyncQueue builds a queue with capacity slots.
func NewAsyncQueue(capacity int) *AsyncQueue {
	return &AsyncQueue{
		entries: map[string]*asyncEntry{},
		sem:     make(chan struct{}, capacity),
	}
}

// Enqueue reserves a slot and starts the invocation in a goroutine,
// returning the generated id. ok is false if the queue is at capacity.
func (q *AsyncQueue) Enqueue(ctx context.Context, rt *router.Router, req router.Request) (id string, ok bool) {
	select {
	case q.sem <- struct{}{}:
	default:
		return "", false
	}

	id = uuid.NewString()
	q.mu.Lock()
	q.entries[id] = &asyncEntry{state: StatePending}
	q.mu.Unlock()

	go func() {
		defer func() { <-q.sem }()
		resp := rt.Invoke(context.WithoutCancel(ctx), req)
		state := StateDone
		if resp.Status != "success" {
			state = StateError
		}
		q.mu.Lock()
		q.entries[id] = &asyncEntry{state: state, response: resp}
		q.mu.Unlock()
	}()

	return id, true
}

// Status reports the current state and, once done, the invocation response.
func (q *AsyncQueue) Status(id string) (State, router.Response, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return "", router.Response{}, false
	}
	return e.state, e.response, true
}
