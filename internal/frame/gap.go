package frame

import "sync"

// GapTracker infers lost frames from discontinuities in the hardware
// frame counter. The counter is authoritative: it increments on the FPGA
// side for every frame generated, whether or not the frame survived the
// transfer path.
type GapTracker struct {
	mu         sync.Mutex
	firstSeen  bool
	last       uint32
	missing    uint64
	outOfOrder uint64
}

// GapState is a snapshot of the tracker.
type GapState struct {
	FirstSeen   bool
	LastCounter uint32
	Missing     uint64
	OutOfOrder  uint64
}

func NewGapTracker() *GapTracker {
	return &GapTracker{}
}

// Observe records one valid frame counter. It returns the number of
// frames newly detected as missing and whether the counter arrived out of
// order. The first counter of a session seeds the tracker and is never
// compared. An out-of-order counter is observed but does not change the
// missing count; the tracker resynchronizes on it.
func (g *GapTracker) Observe(counter uint32) (missed uint64, outOfOrder bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.firstSeen {
		g.firstSeen = true
		g.last = counter
		return 0, false
	}

	expected := g.last + 1
	switch {
	case counter > expected:
		missed = uint64(counter - expected)
		g.missing += missed
	case counter < expected:
		outOfOrder = true
		g.outOfOrder++
	}
	g.last = counter
	return missed, outOfOrder
}

// Missing returns the cumulative missing-frame count.
func (g *GapTracker) Missing() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.missing
}

// Snapshot returns the full tracker state.
func (g *GapTracker) Snapshot() GapState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return GapState{
		FirstSeen:   g.firstSeen,
		LastCounter: g.last,
		Missing:     g.missing,
		OutOfOrder:  g.outOfOrder,
	}
}

// Reset clears all state for a new streaming session.
func (g *GapTracker) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.firstSeen = false
	g.last = 0
	g.missing = 0
	g.outOfOrder = 0
}
