// Package frame locates and validates FPGA data frames inside raw DMA
// transfers.
//
// A frame is a run of little-endian 32-bit words delimited by a start
// marker word and an end marker word, with a hardware frame counter in
// the word immediately before the end marker:
//
//	[start] [payload word 0] … [payload word N-1] [counter] [end]
//
// The total word count is fixed per pulse mode (short = 53, long = 403),
// so the payload is always total-3 words.
package frame

import "fmt"

// Marker words as they appear in transfer memory. The FPGA emits the
// start marker in two byte orders depending on bus configuration; both
// are accepted.
const (
	StartMarkerA uint32 = 0xFEFFFFFF
	StartMarkerB uint32 = 0xFFFFFFFE
	EndMarker    uint32 = 0xFFFFFFFF
)

// WordSize is the FPGA bus word width in bytes.
const WordSize = 4

// PulseMode selects between the two fixed frame sizes the FPGA can emit.
type PulseMode int

const (
	// PulseShort is the 53-word frame format.
	PulseShort PulseMode = iota
	// PulseLong is the 403-word frame format.
	PulseLong
)

const (
	shortPulseWords = 53
	longPulseWords  = 403
)

// Words returns the total frame length in words for the mode, including
// start marker, counter and end marker.
func (m PulseMode) Words() int {
	if m == PulseLong {
		return longPulseWords
	}
	return shortPulseWords
}

// TransferBytes returns the hardware transfer size for the mode. The DMA
// engine is armed with exactly one frame per transfer.
func (m PulseMode) TransferBytes() int {
	return m.Words() * WordSize
}

// PayloadBytes returns the payload size of a valid frame: everything
// between the start marker and the counter word.
func (m PulseMode) PayloadBytes() int {
	return (m.Words() - 3) * WordSize
}

func (m PulseMode) String() string {
	if m == PulseLong {
		return "long"
	}
	return "short"
}

// ParsePulseMode converts a config/CLI string into a PulseMode.
func ParsePulseMode(s string) (PulseMode, error) {
	switch s {
	case "short":
		return PulseShort, nil
	case "long":
		return PulseLong, nil
	default:
		return PulseShort, fmt.Errorf("unknown pulse mode %q (must be short or long)", s)
	}
}
