package frame

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
)

// DefaultAccumulatorSize is the accumulation buffer capacity.
const DefaultAccumulatorSize = 64 * 1024

// reprocessTransferThreshold triggers a reprocessing pass after this many
// header-only transfers have been buffered.
const reprocessTransferThreshold = 3

// footerSearchWindow is how many words past the expected footer position
// are searched when the footer is not where it should be. A footer found
// inside the window indicates misaligned framing, which is logged but
// never emitted: ambiguous framing is not guessed at.
const footerSearchWindow = 10

// ErrAccumOverflow is returned by Add when appending would exceed the
// buffer capacity. The buffer is reset as a side effect; evidence older
// than the overflow is unrecoverable.
var ErrAccumOverflow = errors.New("frame: accumulation buffer overflow")

// Accumulator buffers transfers that contained a start marker but no end
// marker, so frames split across transfer boundaries can be recovered
// once the remainder arrives.
type Accumulator struct {
	log *slog.Logger

	mu         sync.Mutex
	buf        []byte
	used       int
	transfers  int
	overflows  uint64
	misaligned uint64
}

// NewAccumulator creates an accumulator with the given capacity in bytes.
// size <= 0 selects DefaultAccumulatorSize.
func NewAccumulator(size int, logger *slog.Logger) *Accumulator {
	if size <= 0 {
		size = DefaultAccumulatorSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		log: logger,
		buf: make([]byte, size),
	}
}

// Add appends one transfer's bytes. On overflow the buffer is reset and
// ErrAccumOverflow returned.
func (a *Accumulator) Add(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.used+len(data) > len(a.buf) {
		dropped := a.used
		a.used = 0
		a.transfers = 0
		a.overflows++
		a.log.Warn("accumulation buffer overflow, resetting",
			"dropped_bytes", dropped, "transfer_bytes", len(data))
		return ErrAccumOverflow
	}
	copy(a.buf[a.used:], data)
	a.used += len(data)
	a.transfers++
	return nil
}

// ShouldReprocess reports whether enough evidence has accumulated to be
// worth a reprocessing pass: either the transfer watermark is reached or
// occupancy passed half the buffer.
func (a *Accumulator) ShouldReprocess() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transfers >= reprocessTransferThreshold || a.used >= len(a.buf)/2
}

// Reprocess scans the accumulated bytes for complete frames of the given
// mode and returns them with payloads copied out. For every start marker
// the footer must sit at exactly start+mode.Words()-1; a footer found
// only inside the forward search window marks a misaligned frame, which
// is counted and skipped. The buffer is always cleared afterwards,
// whether or not frames were recovered.
func (a *Accumulator) Reprocess(mode PulseMode) []Extracted {
	a.mu.Lock()
	defer a.mu.Unlock()

	var found []Extracted
	wordCount := a.used / WordSize
	expected := mode.Words()

	if wordCount < 2 {
		a.used = 0
		a.transfers = 0
		return nil
	}

	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(a.buf[i*WordSize:])
	}

	for i := 0; i < wordCount-1; i++ {
		w := word(i)
		if w != StartMarkerA && w != StartMarkerB {
			continue
		}
		if i+expected > wordCount {
			a.log.Debug("header near buffer end, not enough data for a frame",
				"word_offset", i, "need_words", expected, "have_words", wordCount-i)
			continue
		}
		footerPos := i + expected - 1
		if word(footerPos) == EndMarker {
			counter := word(footerPos - 1)
			payload := make([]byte, (expected-3)*WordSize)
			copy(payload, a.buf[(i+1)*WordSize:(footerPos-1)*WordSize])
			found = append(found, Extracted{Payload: payload, Counter: counter})
			i = footerPos // loop increment moves past the footer
			continue
		}
		// Footer not at the expected position: search a small forward
		// window. A hit means the stream framing drifted; recovery is
		// ambiguous so the frame is only observed.
		limit := footerPos + footerSearchWindow + 1
		if limit > wordCount {
			limit = wordCount
		}
		for j := i + 1; j < limit; j++ {
			if word(j) == EndMarker {
				a.misaligned++
				a.log.Warn("misaligned frame in accumulation buffer",
					"header_word", i, "footer_word", j,
					"span_words", j-i+1, "expected_words", expected)
				break
			}
		}
	}

	a.used = 0
	a.transfers = 0
	return found
}

// Pending returns current occupancy in bytes and buffered transfer count.
func (a *Accumulator) Pending() (bytes, transfers int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used, a.transfers
}

// Overflows returns the cumulative overflow reset count.
func (a *Accumulator) Overflows() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overflows
}

// Misaligned returns the cumulative misaligned-frame observation count.
func (a *Accumulator) Misaligned() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.misaligned
}

// Reset discards all accumulated evidence.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.used = 0
	a.transfers = 0
}
