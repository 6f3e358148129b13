// Package queue implements the bounded raw-transfer FIFO between the
// capture completion path and the frame-extraction worker.
//
// The producer side is the hottest path in the daemon: it runs once per
// hardware transfer and must never block. Enqueue therefore fails fast
// when the queue is full; the transfer is dropped and counted rather
// than stalling capture.
package queue

import (
	"errors"
	"sync"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

// ErrFull is returned by Enqueue when the queue is at capacity.
var ErrFull = errors.New("queue: full")

// DefaultCapacity tolerates a burst of hardware completions while the
// worker is busy.
const DefaultCapacity = 256

// Transfer is one captured raw transfer. Ownership moves with the value:
// the stage holding it may read and release it, nothing else aliases it.
type Transfer struct {
	Data []byte
	Mode frame.PulseMode
}

// Queue is a mutex-guarded bounded FIFO of transfers.
type Queue struct {
	mu    sync.Mutex
	items []Transfer
	head  int
	count int
}

// New creates a queue with the given capacity; cap <= 0 selects
// DefaultCapacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{items: make([]Transfer, capacity)}
}

// Enqueue adds a transfer without blocking. Returns ErrFull when at
// capacity; the caller counts the drop.
func (q *Queue) Enqueue(t Transfer) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.items) {
		return ErrFull
	}
	q.items[(q.head+q.count)%len(q.items)] = t
	q.count++
	return nil
}

// Dequeue removes and returns the oldest transfer.
func (q *Queue) Dequeue() (Transfer, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return Transfer{}, false
	}
	t := q.items[q.head]
	q.items[q.head] = Transfer{} // release the backing array reference
	q.head = (q.head + 1) % len(q.items)
	q.count--
	return t, true
}

// Len returns the number of queued transfers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Reset discards all queued transfers.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.items {
		q.items[i] = Transfer{}
	}
	q.head = 0
	q.count = 0
}
