package ring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingPutGetRelease(t *testing.T) {
	r := New(4, 16)
	require.NoError(t, r.Put([]byte("alpha")))
	require.NoError(t, r.Put([]byte("beta")))
	assert.Equal(t, 2, r.Len())

	p, ok := r.Get()
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), p)

	// Get does not consume.
	p2, ok := r.Get()
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), p2)

	r.Release()
	p, ok = r.Get()
	require.True(t, ok)
	assert.Equal(t, []byte("beta"), p)
	r.Release()

	_, ok = r.Get()
	assert.False(t, ok)
}

func TestRingFullNeverOverwrites(t *testing.T) {
	r := New(3, 8)
	require.NoError(t, r.Put([]byte("a")))
	require.NoError(t, r.Put([]byte("b")))
	require.NoError(t, r.Put([]byte("c")))

	err := r.Put([]byte("d"))
	assert.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 3, r.Len())

	// Contents unchanged after the failed put.
	for _, want := range []string{"a", "b", "c"} {
		p, ok := r.Get()
		require.True(t, ok)
		assert.True(t, bytes.Equal([]byte(want), p))
		r.Release()
	}
}

func TestRingPayloadTooLarge(t *testing.T) {
	r := New(2, 4)
	err := r.Put([]byte("too big for slot"))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, r.Len())
}

func TestRingSlotReuseAfterRelease(t *testing.T) {
	r := New(2, 8)
	require.NoError(t, r.Put([]byte("one")))
	require.NoError(t, r.Put([]byte("two")))

	p, _ := r.Get()
	got := string(p)
	r.Release()
	require.NoError(t, r.Put([]byte("three")))

	assert.Equal(t, "one", got)
	p, _ = r.Get()
	assert.Equal(t, "two", string(p))
}

func TestRingReset(t *testing.T) {
	r := New(2, 8)
	require.NoError(t, r.Put([]byte("x")))
	r.Reset()
	assert.Zero(t, r.Len())
	_, ok := r.Get()
	assert.False(t, ok)
	require.NoError(t, r.Put([]byte("y")))
}
