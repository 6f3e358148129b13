package stream

import "sync/atomic"

// Counters hold the engine's statistics. All fields are updated from
// the pipeline goroutines without locks.
type Counters struct {
	TransfersCompleted atomic.Uint64
	BytesTransferred   atomic.Uint64
	PacketsSent        atomic.Uint64
	Errors             atomic.Uint64

	ValidFrames      atomic.Uint64
	InvalidFrames    atomic.Uint64
	ExtractedFrames  atomic.Uint64
	MissingFrames    atomic.Uint64
	OutOfOrderFrames atomic.Uint64

	QueueDrops     atomic.Uint64
	RingDrops      atomic.Uint64
	AccumOverflows atomic.Uint64
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.TransfersCompleted.Store(0)
	c.BytesTransferred.Store(0)
	c.PacketsSent.Store(0)
	c.Errors.Store(0)
	c.ValidFrames.Store(0)
	c.InvalidFrames.Store(0)
	c.ExtractedFrames.Store(0)
	c.MissingFrames.Store(0)
	c.OutOfOrderFrames.Store(0)
	c.QueueDrops.Store(0)
	c.RingDrops.Store(0)
	c.AccumOverflows.Store(0)
}

// Stats is a point-in-time snapshot of the engine, shaped for the
// control plane and the metrics collector.
type Stats struct {
	State       string `json:"state"`
	SessionID   string `json:"session_id,omitempty"`
	PulseMode   string `json:"pulse_mode"`
	Destination string `json:"destination,omitempty"`

	TransfersCompleted uint64 `json:"transfers_completed"`
	BytesTransferred   uint64 `json:"bytes_transferred"`
	PacketsSent        uint64 `json:"packets_sent"`
	Errors             uint64 `json:"errors"`

	ValidFrames      uint64 `json:"valid_frames"`
	InvalidFrames    uint64 `json:"invalid_frames"`
	ExtractedFrames  uint64 `json:"extracted_frames"`
	MissingFrames    uint64 `json:"missing_frames"`
	OutOfOrderFrames uint64 `json:"out_of_order_frames"`

	QueueDrops     uint64 `json:"queue_drops"`
	RingDrops      uint64 `json:"ring_drops"`
	AccumOverflows uint64 `json:"accum_overflows"`

	QueueDepth int `json:"queue_depth"`
	RingDepth  int `json:"ring_depth"`
}

// Stats returns a snapshot of counters and pipeline depths.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	state := e.state.String()
	session := e.sessionID
	mode := e.mode.String()
	dest := e.destination
	e.mu.Unlock()

	return Stats{
		State:       state,
		SessionID:   session,
		PulseMode:   mode,
		Destination: dest,

		TransfersCompleted: e.counters.TransfersCompleted.Load(),
		BytesTransferred:   e.counters.BytesTransferred.Load(),
		PacketsSent:        e.counters.PacketsSent.Load(),
		Errors:             e.counters.Errors.Load(),

		ValidFrames:      e.counters.ValidFrames.Load(),
		InvalidFrames:    e.counters.InvalidFrames.Load(),
		ExtractedFrames:  e.counters.ExtractedFrames.Load(),
		MissingFrames:    e.counters.MissingFrames.Load(),
		OutOfOrderFrames: e.counters.OutOfOrderFrames.Load(),

		QueueDrops:     e.counters.QueueDrops.Load(),
		RingDrops:      e.counters.RingDrops.Load(),
		AccumOverflows: e.counters.AccumOverflows.Load(),

		QueueDepth: e.queue.Len(),
		RingDepth:  e.ring.Len(),
	}
}
