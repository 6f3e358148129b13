package frame

import (
	"encoding/binary"
	"errors"
)

// Extraction failure classes. Callers route on these: ErrHeaderOnly sends
// the transfer to the Accumulator, everything else is a counted drop.
var (
	// ErrNoMarkers means the transfer carries no start marker; there is
	// nothing recoverable in it.
	ErrNoMarkers = errors.New("frame: no markers found")

	// ErrHeaderOnly means a start marker was seen but no end marker; the
	// remainder of the frame may arrive in a later transfer.
	ErrHeaderOnly = errors.New("frame: header without footer")

	// ErrLengthMismatch means both markers were found but the span between
	// them does not match the pulse mode. The capture is corrupted; the
	// frame is not offered to the accumulation buffer.
	ErrLengthMismatch = errors.New("frame: marker span does not match pulse mode")

	// ErrTooShort means the marker span is too small to hold a counter and
	// at least one payload word.
	ErrTooShort = errors.New("frame: span too short for payload")
)

// Extracted is one validated frame: the payload byte range and the
// hardware frame counter. Payload aliases the scanned transfer unless
// documented otherwise; copy it before the transfer is released.
type Extracted struct {
	Payload []byte
	Counter uint32
}

// Extract scans a transfer for exactly one frame of the given mode.
//
// The scan records the first occurrence of either start marker encoding
// and the last occurrence of the end marker. A frame is valid only when
// both are present and the inclusive span equals mode.Words(); the payload
// excludes the start marker, the counter word and the end marker.
func Extract(data []byte, mode PulseMode) (Extracted, error) {
	wordCount := len(data) / WordSize
	headerPos, footerPos := -1, -1

	for i := 0; i < wordCount; i++ {
		w := binary.LittleEndian.Uint32(data[i*WordSize:])
		if (w == StartMarkerA || w == StartMarkerB) && headerPos == -1 {
			headerPos = i
		}
		if w == EndMarker {
			footerPos = i
		}
	}

	switch {
	case headerPos == -1:
		// A stray footer without a header is equally unrecoverable.
		return Extracted{}, ErrNoMarkers
	case footerPos == -1 || footerPos < headerPos:
		return Extracted{}, ErrHeaderOnly
	}

	span := footerPos - headerPos + 1
	if span < 3 {
		return Extracted{}, ErrTooShort
	}
	if span != mode.Words() {
		return Extracted{}, ErrLengthMismatch
	}

	counter := binary.LittleEndian.Uint32(data[(footerPos-1)*WordSize:])
	payload := data[(headerPos+1)*WordSize : (footerPos-1)*WordSize]
	return Extracted{Payload: payload, Counter: counter}, nil
}
