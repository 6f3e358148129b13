// Package ring implements the bounded payload ring between frame
// extraction and packetization.
//
// Slots are pre-sized at construction so the hot path never allocates.
// Consumption is two-phase: Get returns a view of the oldest slot without
// removing it, Release retires the slot once the consumer is done. A slot
// is never reused while still referenced by the consumer.
package ring

import (
	"errors"
	"sync"
)

var (
	// ErrFull is returned by Put when every slot is occupied. The ring
	// never overwrites: the newest payload is the one that is dropped.
	ErrFull = errors.New("ring: full")

	// ErrPayloadTooLarge is returned when a payload cannot fit a slot.
	// Extraction sizes payloads from the pulse mode, so this indicates a
	// defect upstream, not a transient condition.
	ErrPayloadTooLarge = errors.New("ring: payload exceeds slot size")
)

const (
	// DefaultCapacity is the default slot count.
	DefaultCapacity = 256
	// DefaultSlotSize accommodates the long-pulse payload.
	DefaultSlotSize = 1600
)

// Ring is a fixed-capacity circular buffer of payload slots.
type Ring struct {
	mu    sync.Mutex
	slots [][]byte
	lens  []int
	head  int // next write position
	tail  int // oldest unconsumed slot
	count int
}

// New creates a ring; non-positive arguments select the defaults.
func New(capacity, slotSize int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if slotSize <= 0 {
		slotSize = DefaultSlotSize
	}
	r := &Ring{
		slots: make([][]byte, capacity),
		lens:  make([]int, capacity),
	}
	for i := range r.slots {
		r.slots[i] = make([]byte, slotSize)
	}
	return r
}

// Put copies a payload into the next free slot. It fails without
// blocking and without overwriting when the ring is full.
func (r *Ring) Put(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(payload) > len(r.slots[0]) {
		return ErrPayloadTooLarge
	}
	if r.count == len(r.slots) {
		return ErrFull
	}
	copy(r.slots[r.head], payload)
	r.lens[r.head] = len(payload)
	r.head = (r.head + 1) % len(r.slots)
	r.count++
	return nil
}

// Get returns the oldest unconsumed payload without removing it. The
// returned slice aliases slot storage and stays valid until Release.
// Only a single consumer may interleave Get/Release.
func (r *Ring) Get() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return nil, false
	}
	return r.slots[r.tail][:r.lens[r.tail]], true
}

// Release retires the slot returned by the last Get, making it reusable.
func (r *Ring) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return
	}
	r.tail = (r.tail + 1) % len(r.slots)
	r.count--
}

// Len returns the number of occupied slots.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Capacity returns the slot count.
func (r *Ring) Capacity() int {
	return len(r.slots)
}

// Reset discards all unconsumed payloads.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.tail = 0
	r.count = 0
}
