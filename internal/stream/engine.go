// Package stream implements the streaming engine: the state machine
// that owns the capture source, the raw-transfer queue, the frame
// extraction worker, the payload ring and the packetizer.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/madlink306/antsdr-streamd/internal/emit"
	"github.com/madlink306/antsdr-streamd/internal/frame"
	"github.com/madlink306/antsdr-streamd/internal/queue"
	"github.com/madlink306/antsdr-streamd/internal/ring"
	"github.com/madlink306/antsdr-streamd/internal/source"
)

// State of the engine.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStreaming = errors.New("stream: already streaming")
	ErrNotStreaming     = errors.New("stream: not streaming")
)

const (
	// MaxTransfersPerWake bounds one worker invocation so a deep queue
	// cannot starve other goroutines.
	MaxTransfersPerWake = 50

	// DefaultStopTimeout bounds the wait for in-flight work on stop.
	DefaultStopTimeout = time.Second

	// restartDelay paces source restarts after a hardware error.
	restartDelay = 100 * time.Millisecond
)

// Options configure the engine. Zero values select defaults.
type Options struct {
	Mode          frame.PulseMode
	Destination   string
	QueueCapacity int
	RingCapacity  int
	RingSlotSize  int
	AccumSize     int
	StopTimeout   time.Duration
}

// Engine drives the capture-extract-packetize pipeline for one device.
type Engine struct {
	log *slog.Logger
	src source.Source

	queue *queue.Queue
	ring  *ring.Ring
	acc   *frame.Accumulator
	gaps  *frame.GapTracker
	pk    *emit.Packetizer

	counters Counters

	// generation invalidates delivery callbacks from goroutines that
	// outlive a forced stop.
	generation atomic.Uint64

	newSender func(destination string) (emit.Sender, error)

	mu          sync.Mutex
	state       State
	mode        frame.PulseMode
	destination string
	sessionID   string
	sender      emit.Sender
	stopTimeout time.Duration
	cancel      context.CancelFunc
	wg          *sync.WaitGroup

	workerWake chan struct{}
	txWake     chan struct{}
}

// New builds an engine around the given source.
func New(src source.Source, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	e := &Engine{
		log:         logger.With("component", "engine"),
		src:         src,
		queue:       queue.New(opts.QueueCapacity),
		ring:        ring.New(opts.RingCapacity, opts.RingSlotSize),
		gaps:        frame.NewGapTracker(),
		mode:        opts.Mode,
		destination: opts.Destination,
		stopTimeout: opts.StopTimeout,
		workerWake:  make(chan struct{}, 1),
		txWake:      make(chan struct{}, 1),
		newSender: func(destination string) (emit.Sender, error) {
			return emit.NewUDPSender(destination)
		},
	}
	e.acc = frame.NewAccumulator(opts.AccumSize, logger)
	e.pk = emit.NewPacketizer(e.ring, e.gaps.Missing, logger)
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Mode returns the configured pulse mode.
func (e *Engine) Mode() frame.PulseMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Start begins a streaming session. Fails if one is already running.
// The destination socket is dialed before the engine lock is taken;
// resolution may block and must not stall Stats or Stop.
func (e *Engine) Start() error {
	for {
		e.mu.Lock()
		if e.state != StateIdle {
			e.mu.Unlock()
			return ErrAlreadyStreaming
		}
		dest := e.destination
		e.mu.Unlock()

		var s emit.Sender
		if dest != "" {
			var err error
			s, err = e.newSender(dest)
			if err != nil {
				return err
			}
		}

		e.mu.Lock()
		if e.state == StateIdle && e.destination == dest {
			err := e.startLocked(s)
			e.mu.Unlock()
			return err
		}
		// State or destination changed while dialing; redo.
		e.mu.Unlock()
		if s != nil {
			_ = s.Close()
		}
	}
}

// startLocked launches the session goroutines around a pre-dialed
// sender (nil when no destination is configured).
func (e *Engine) startLocked(s emit.Sender) error {
	if e.state != StateIdle {
		return ErrAlreadyStreaming
	}

	e.sender = s
	e.pk.SetSender(s)

	gen := e.generation.Add(1)

	// Fresh gap state for the new session; the first frame seeds the
	// counter instead of being compared against the previous session.
	e.gaps.Reset()
	e.queue.Reset()
	e.ring.Reset()
	e.acc.Reset()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg = &sync.WaitGroup{}
	e.sessionID = uuid.NewString()
	e.state = StateStreaming

	e.wg.Add(3)
	go e.sourceLoop(ctx, e.wg, e.mode, gen)
	go e.workerLoop(ctx, e.wg)
	go e.txLoop(ctx, e.wg)

	e.log.Info("streaming started",
		"session_id", e.sessionID,
		"pulse_mode", e.mode.String(),
		"destination", e.destination)
	return nil
}

// Stop ends the session, draining in-flight work for at most the stop
// timeout before forcing a reset.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	if e.state != StateStreaming {
		return ErrNotStreaming
	}
	e.state = StateStopping
	e.cancel()

	done := make(chan struct{})
	go func(wg *sync.WaitGroup) {
		wg.Wait()
		close(done)
	}(e.wg)

	select {
	case <-done:
	case <-time.After(e.stopTimeout):
		e.log.Warn("stop timed out, forcing reset", "timeout", e.stopTimeout)
	}

	// Delivery callbacks still held by goroutines that missed the
	// deadline are invalidated before the buffers are reset.
	e.generation.Add(1)

	if e.sender != nil {
		if err := e.sender.Close(); err != nil {
			e.log.Warn("sender close failed", "error", err)
		}
		e.sender = nil
		e.pk.SetSender(nil)
	}

	// Discard everything still buffered; a new session starts clean.
	e.queue.Reset()
	e.ring.Reset()
	e.acc.Reset()

	e.state = StateIdle
	e.log.Info("streaming stopped", "session_id", e.sessionID)
	e.sessionID = ""
	return nil
}

// SetMode changes the pulse mode. While streaming this stops the
// session, applies the mode and starts a new one.
func (e *Engine) SetMode(mode frame.PulseMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if mode == e.mode {
		return nil
	}
	if e.state != StateStreaming {
		e.mode = mode
		return nil
	}

	// The destination is unchanged, so the dialed socket is carried
	// over to the new session instead of being closed and re-resolved.
	s := e.sender
	e.sender = nil
	if err := e.stopLocked(); err != nil {
		e.sender = s
		return err
	}
	e.mode = mode
	return e.startLocked(s)
}

// SetDestination changes the UDP destination. While streaming the new
// sender is dialed outside the engine lock and replaces the old one
// without interrupting the pipeline; while idle the address is stored
// and dialed on the next Start.
func (e *Engine) SetDestination(destination string) error {
	e.mu.Lock()
	if e.state != StateStreaming {
		e.destination = destination
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	var next emit.Sender
	if destination != "" {
		s, err := e.newSender(destination)
		if err != nil {
			return err
		}
		next = s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateStreaming {
		// The session ended while dialing.
		if next != nil {
			_ = next.Close()
		}
		e.destination = destination
		return nil
	}
	if e.sender != nil {
		_ = e.sender.Close()
	}
	e.sender = next
	e.pk.SetSender(next)
	e.destination = destination
	e.wake(e.txWake)
	return nil
}

// ResetStats zeroes the statistics counters. Gap-detection state is
// live pipeline state and survives a stats reset.
func (e *Engine) ResetStats() {
	e.counters.Reset()
}

// onTransfer is the per-transfer fast path invoked by the source. It
// copies the transfer, enqueues it and wakes the worker; when the
// queue is full the transfer is dropped and counted.
func (e *Engine) onTransfer(mode frame.PulseMode, gen uint64) source.DeliverFunc {
	return func(data []byte) {
		// A source goroutine that outlived a forced stop must not feed
		// a later session.
		if e.generation.Load() != gen {
			return
		}
		e.counters.TransfersCompleted.Add(1)
		e.counters.BytesTransferred.Add(uint64(len(data)))

		cp := make([]byte, len(data))
		copy(cp, data)
		if err := e.queue.Enqueue(queue.Transfer{Data: cp, Mode: mode}); err != nil {
			e.counters.QueueDrops.Add(1)
			return
		}
		e.wake(e.workerWake)
	}
}

// sourceLoop runs the source, restarting it after a transfer error
// unless the session is shutting down.
func (e *Engine) sourceLoop(ctx context.Context, wg *sync.WaitGroup, mode frame.PulseMode, gen uint64) {
	defer wg.Done()
	deliver := e.onTransfer(mode, gen)
	for {
		err := e.src.Run(ctx, mode, deliver)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.counters.Errors.Add(1)
			e.log.Error("source failed, resetting", "error", err)
		} else {
			e.log.Info("source finished")
			return
		}

		// Bounded reset before the restart, matching the hardware
		// error recovery path: discard buffered payloads and partial
		// frame evidence, then re-arm.
		e.ring.Reset()
		e.acc.Reset()
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

// workerLoop extracts frames from queued transfers in bounded batches.
func (e *Engine) workerLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.workerWake:
		}

		for i := 0; i < MaxTransfersPerWake; i++ {
			t, ok := e.queue.Dequeue()
			if !ok {
				break
			}
			e.processTransfer(t)
		}
		if e.queue.Len() > 0 {
			e.wake(e.workerWake)
		}
	}
}

// processTransfer runs extraction on one transfer and routes the
// outcome: valid payloads to the ring, incomplete frames to the
// accumulation buffer, the rest to failure counters.
func (e *Engine) processTransfer(t queue.Transfer) {
	ext, err := frame.Extract(t.Data, t.Mode)
	switch {
	case err == nil:
		e.admitFrame(ext)
	case errors.Is(err, frame.ErrHeaderOnly):
		// Possibly the front half of a frame split across transfers.
		e.counters.InvalidFrames.Add(1)
		if err := e.acc.Add(t.Data); err != nil {
			e.counters.AccumOverflows.Add(1)
			return
		}
		if e.acc.ShouldReprocess() {
			for _, rec := range e.acc.Reprocess(t.Mode) {
				e.admitFrame(rec)
			}
		}
	default:
		e.counters.InvalidFrames.Add(1)
		e.log.Debug("extraction failed", "error", err, "transfer_bytes", len(t.Data))
	}
}

func (e *Engine) admitFrame(ext frame.Extracted) {
	e.counters.ValidFrames.Add(1)
	missed, outOfOrder := e.gaps.Observe(ext.Counter)
	if missed > 0 {
		e.counters.MissingFrames.Add(missed)
		e.log.Warn("frame gap detected", "counter", ext.Counter, "missed", missed)
	}
	if outOfOrder {
		e.counters.OutOfOrderFrames.Add(1)
		e.log.Warn("out-of-order frame counter", "counter", ext.Counter)
	}

	if err := e.ring.Put(ext.Payload); err != nil {
		e.counters.RingDrops.Add(1)
		return
	}
	e.counters.ExtractedFrames.Add(1)
	e.wake(e.txWake)
}

// txLoop drains the payload ring through the packetizer.
func (e *Engine) txLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.txWake:
		}

		sent, more, err := e.pk.Drain()
		e.counters.PacketsSent.Add(uint64(sent))
		if err != nil {
			e.counters.Errors.Add(1)
		}
		if more && err == nil {
			e.wake(e.txWake)
		}
	}
}

// wake posts a wakeup without blocking; a pending wakeup coalesces.
func (e *Engine) wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
