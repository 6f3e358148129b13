package frame

import (
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccumulator(size int) *Accumulator {
	return NewAccumulator(size, slog.Default())
}

func TestAccumulatorRecoverySplitFrame(t *testing.T) {
	// One short frame split across two transfers: the first 100 bytes
	// carry the header, the remainder carries the footer.
	full := buildFrame(t, PulseShort, 17, 0x2000)
	a := testAccumulator(0)

	require.NoError(t, a.Add(full[:100]))
	require.NoError(t, a.Add(full[100:]))

	found := a.Reprocess(PulseShort)
	require.Len(t, found, 1)
	assert.Equal(t, uint32(17), found[0].Counter)
	assert.Len(t, found[0].Payload, PulseShort.PayloadBytes())
	assert.Equal(t, uint32(0x2001), binary.LittleEndian.Uint32(found[0].Payload))

	// Buffer is always cleared after a pass.
	used, transfers := a.Pending()
	assert.Zero(t, used)
	assert.Zero(t, transfers)
}

func TestAccumulatorRecoversMultipleFrames(t *testing.T) {
	a := testAccumulator(0)
	require.NoError(t, a.Add(buildFrame(t, PulseShort, 1, 0)))
	require.NoError(t, a.Add(buildFrame(t, PulseShort, 2, 0)))
	require.NoError(t, a.Add(buildFrame(t, PulseShort, 3, 0)))

	found := a.Reprocess(PulseShort)
	require.Len(t, found, 3)
	assert.Equal(t, uint32(1), found[0].Counter)
	assert.Equal(t, uint32(2), found[1].Counter)
	assert.Equal(t, uint32(3), found[2].Counter)
}

func TestAccumulatorPayloadsAreCopies(t *testing.T) {
	a := testAccumulator(0)
	require.NoError(t, a.Add(buildFrame(t, PulseShort, 9, 0x40)))
	found := a.Reprocess(PulseShort)
	require.Len(t, found, 1)

	first := binary.LittleEndian.Uint32(found[0].Payload)
	// A later Add must not corrupt previously returned payloads.
	require.NoError(t, a.Add(buildFrame(t, PulseShort, 10, 0x9999)))
	assert.Equal(t, first, binary.LittleEndian.Uint32(found[0].Payload))
}

func TestAccumulatorOverflowResets(t *testing.T) {
	a := testAccumulator(300)
	require.NoError(t, a.Add(make([]byte, 200)))

	err := a.Add(make([]byte, 200))
	assert.ErrorIs(t, err, ErrAccumOverflow)
	assert.Equal(t, uint64(1), a.Overflows())

	// Evidence older than the overflow is gone.
	used, transfers := a.Pending()
	assert.Zero(t, used)
	assert.Zero(t, transfers)
}

func TestAccumulatorReprocessThresholds(t *testing.T) {
	a := testAccumulator(1 << 20)
	require.NoError(t, a.Add(make([]byte, 8)))
	assert.False(t, a.ShouldReprocess())
	require.NoError(t, a.Add(make([]byte, 8)))
	assert.False(t, a.ShouldReprocess())
	require.NoError(t, a.Add(make([]byte, 8)))
	assert.True(t, a.ShouldReprocess(), "three buffered transfers reach the watermark")

	a.Reset()
	require.NoError(t, a.Add(make([]byte, 1<<19)))
	assert.True(t, a.ShouldReprocess(), "half occupancy reaches the watermark")
}

func TestAccumulatorMisalignedFrameIsObservedNotEmitted(t *testing.T) {
	// Header followed by a footer 5 words beyond the expected position:
	// inside the search window, so it is counted as misaligned, but the
	// span is ambiguous and nothing is emitted.
	words := PulseShort.Words() + 5
	buf := make([]byte, words*WordSize)
	binary.LittleEndian.PutUint32(buf[0:], StartMarkerA)
	binary.LittleEndian.PutUint32(buf[(words-1)*WordSize:], EndMarker)

	a := testAccumulator(0)
	require.NoError(t, a.Add(buf))

	found := a.Reprocess(PulseShort)
	assert.Empty(t, found)
	assert.Equal(t, uint64(1), a.Misaligned())

	used, _ := a.Pending()
	assert.Zero(t, used, "buffer cleared even when nothing was recovered")
}

func TestAccumulatorHeaderNearEndNotEnoughData(t *testing.T) {
	buf := make([]byte, 10*WordSize)
	binary.LittleEndian.PutUint32(buf[0:], StartMarkerA)

	a := testAccumulator(0)
	require.NoError(t, a.Add(buf))
	assert.Empty(t, a.Reprocess(PulseShort))
}
