package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFrame synthesizes one well-formed frame for the mode: start
// marker, payload words counting up from seed, counter word, end marker.
func buildFrame(t *testing.T, mode PulseMode, counter uint32, seed uint32) []byte {
	t.Helper()
	words := mode.Words()
	buf := make([]byte, words*WordSize)
	binary.LittleEndian.PutUint32(buf[0:], StartMarkerA)
	for i := 1; i < words-2; i++ {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], seed+uint32(i))
	}
	binary.LittleEndian.PutUint32(buf[(words-2)*WordSize:], counter)
	binary.LittleEndian.PutUint32(buf[(words-1)*WordSize:], EndMarker)
	return buf
}

func TestExtractValidFrame(t *testing.T) {
	for _, mode := range []PulseMode{PulseShort, PulseLong} {
		t.Run(mode.String(), func(t *testing.T) {
			data := buildFrame(t, mode, 42, 0x1000)

			ex, err := Extract(data, mode)
			require.NoError(t, err)
			assert.Equal(t, uint32(42), ex.Counter)
			assert.Len(t, ex.Payload, mode.PayloadBytes())
			assert.Equal(t, (mode.Words()-3)*WordSize, len(ex.Payload))

			// First payload word survives intact.
			assert.Equal(t, uint32(0x1001), binary.LittleEndian.Uint32(ex.Payload))
		})
	}
}

func TestExtractAcceptsBothStartMarkers(t *testing.T) {
	data := buildFrame(t, PulseShort, 7, 0)
	binary.LittleEndian.PutUint32(data[0:], StartMarkerB)

	ex, err := Extract(data, PulseShort)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), ex.Counter)
}

func TestExtractLengthMismatch(t *testing.T) {
	// A short-mode frame scanned in long mode has the wrong span.
	data := buildFrame(t, PulseShort, 3, 0)

	_, err := Extract(data, PulseLong)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestExtractSpanTooShortForPayload(t *testing.T) {
	// Markers adjacent to each other leave no room for a counter word,
	// let alone payload.
	data := make([]byte, PulseShort.TransferBytes())
	binary.LittleEndian.PutUint32(data[0:], StartMarkerA)
	binary.LittleEndian.PutUint32(data[WordSize:], EndMarker)

	_, err := Extract(data, PulseShort)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestExtractNoMarkers(t *testing.T) {
	data := make([]byte, PulseShort.TransferBytes())
	for i := range data {
		data[i] = 0x5a
	}

	_, err := Extract(data, PulseShort)
	assert.ErrorIs(t, err, ErrNoMarkers)
}

func TestExtractFooterOnlyIsUnrecoverable(t *testing.T) {
	data := make([]byte, PulseShort.TransferBytes())
	binary.LittleEndian.PutUint32(data[8:], EndMarker)

	_, err := Extract(data, PulseShort)
	assert.ErrorIs(t, err, ErrNoMarkers)
}

func TestExtractHeaderOnly(t *testing.T) {
	data := make([]byte, PulseShort.TransferBytes())
	binary.LittleEndian.PutUint32(data[0:], StartMarkerA)

	_, err := Extract(data, PulseShort)
	assert.ErrorIs(t, err, ErrHeaderOnly)
}

func TestExtractFooterBeforeHeader(t *testing.T) {
	// Footer earlier in the transfer than the header: still incomplete,
	// the frame's own footer has not arrived yet.
	data := make([]byte, PulseShort.TransferBytes())
	binary.LittleEndian.PutUint32(data[0:], EndMarker)
	binary.LittleEndian.PutUint32(data[4*WordSize:], StartMarkerA)

	_, err := Extract(data, PulseShort)
	assert.ErrorIs(t, err, ErrHeaderOnly)
}

func TestPulseModeSizes(t *testing.T) {
	assert.Equal(t, 53, PulseShort.Words())
	assert.Equal(t, 212, PulseShort.TransferBytes())
	assert.Equal(t, 200, PulseShort.PayloadBytes())
	assert.Equal(t, 403, PulseLong.Words())
	assert.Equal(t, 1612, PulseLong.TransferBytes())
	assert.Equal(t, 1600, PulseLong.PayloadBytes())
}

func TestParsePulseMode(t *testing.T) {
	m, err := ParsePulseMode("long")
	require.NoError(t, err)
	assert.Equal(t, PulseLong, m)

	m, err = ParsePulseMode("short")
	require.NoError(t, err)
	assert.Equal(t, PulseShort, m)

	_, err = ParsePulseMode("medium")
	assert.Error(t, err)
}
