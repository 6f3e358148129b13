package source

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

func TestSimProducesValidFrames(t *testing.T) {
	s := NewSim(SimOptions{Count: 5, Seed: 1})

	var counters []uint32
	err := s.Run(context.Background(), frame.PulseShort, func(data []byte) {
		require.Len(t, data, frame.PulseShort.TransferBytes())
		ext, err := frame.Extract(data, frame.PulseShort)
		require.NoError(t, err)
		assert.Len(t, ext.Payload, frame.PulseShort.PayloadBytes())
		counters = append(counters, ext.Counter)
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3, 4, 5}, counters)
}

func TestSimDropEveryLeavesGaps(t *testing.T) {
	s := NewSim(SimOptions{Count: 6, DropEvery: 3, Seed: 1})

	var counters []uint32
	err := s.Run(context.Background(), frame.PulseShort, func(data []byte) {
		ext, err := frame.Extract(data, frame.PulseShort)
		require.NoError(t, err)
		counters = append(counters, ext.Counter)
	})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 4, 5}, counters)
}

func TestSimCorruptEveryEmitsHeaderOnly(t *testing.T) {
	s := NewSim(SimOptions{Count: 2, CorruptEvery: 2, Seed: 1})

	var errs []error
	err := s.Run(context.Background(), frame.PulseShort, func(data []byte) {
		_, err := frame.Extract(data, frame.PulseShort)
		errs = append(errs, err)
	})
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], frame.ErrHeaderOnly)
}

func TestSimHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewSim(SimOptions{Interval: 10 * time.Millisecond, Seed: 1})

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, frame.PulseLong, func([]byte) {})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("source did not stop")
	}
}

func TestFactorySelectsBackend(t *testing.T) {
	s, err := New(Config{Type: "sim", Options: map[string]any{"count": 3, "interval": "5ms"}})
	require.NoError(t, err)
	sim, ok := s.(*Sim)
	require.True(t, ok)
	assert.Equal(t, 3, sim.opts.Count)
	assert.Equal(t, 5*time.Millisecond, sim.opts.Interval)

	_, err = New(Config{Type: "chardev"})
	assert.Error(t, err) // path is required

	_, err = New(Config{Type: "bogus"})
	assert.Error(t, err)
}
