package bus

import (
	"context"
	"sync"
)

// Shards routes events to one bounded queue per symbol so every event
// for a given instrument is applied by a single goroutine, in arrival
// order. Events for different instruments proceed independently.
type Shards struct {
	queues []*Queue
}

// NewShards allocates n per-symbol queues of the given capacity.
// Symbol IDs are 1-based, matching the schema registry.
func NewShards(n, capacity int) *Shards {
	queues := make([]*Queue, n)
	for i := range queues {
		queues[i] = NewQueue(capacity)
	}
	return &Shards{queues: queues}
}

// Publish enqueues an event on the queue owned by symbolID without
// blocking. Events for unknown symbol IDs are rejected.
func (s *Shards) Publish(symbolID uint32, e Event) error {
	if symbolID == 0 || int(symbolID) > len(s.queues) {
		return ErrQueueClosed
	}
	return s.queues[symbolID-1].TryPublish(e)
}

// Run starts one consumer goroutine per queue and blocks until all of
// them drain, either because the context ended or Close was called.
// The handler is never invoked concurrently for the same symbol.
func (s *Shards) Run(ctx context.Context, handler func(Event)) {
	var wg sync.WaitGroup
	for _, q := range s.queues {
		wg.Add(1)
		go func(q *Queue) {
			defer wg.Done()
			q.Run(ctx, handler)
		}(q)
	}
	wg.Wait()
}

// Close stops every queue from accepting new events. Consumers exit
// after draining what was already enqueued.
func (s *Shards) Close() {
	for _, q := range s.queues {
		q.Close()
	}
}
