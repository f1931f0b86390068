// Package scheduler owns the ingest buffer and the timer-driven drain cycle
// that turns buffered quotes into stored candles.
package scheduler

import (
	"sync"

	"github.com/amirphl/candle-writer/internal/quote"
)

// IngestQueue is an unbounded FIFO shared by the transport (producers) and
// the drain cycle (single consumer). Producers are never blocked;
// back-pressure is surfaced through the scheduler's in-flight counter only.
type IngestQueue struct {
	mu    sync.Mutex
	items []quote.Quote
}

func NewIngestQueue() *IngestQueue {
	return &IngestQueue{}
}

func (q *IngestQueue) Enqueue(item quote.Quote) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// TryDequeue pops the oldest quote, reporting false on an empty queue.
func (q *IngestQueue) TryDequeue() (quote.Quote, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return quote.Quote{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *IngestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
