package command

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madlink306/antsdr-streamd/internal/frame"
	"github.com/madlink306/antsdr-streamd/internal/source"
	"github.com/madlink306/antsdr-streamd/internal/stream"
)

func newIdleEngine() *stream.Engine {
	return stream.New(source.NewSim(source.SimOptions{Count: 1, Seed: 1}), stream.Options{
		Mode: frame.PulseShort,
	}, nil)
}

func startTestServer(t *testing.T) (*UDSClient, *Handler) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "antsdrd.sock")
	handler := NewHandler(newIdleEngine())
	server := NewUDSServer(socket, handler)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.Start(ctx) }()

	client := NewUDSClient(socket, 2*time.Second)
	require.Eventually(t, func() bool {
		return client.Ping(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)
	return client, handler
}

func TestUDSRoundTrip(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.StreamStatus(ctx)
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "idle", result["state"])
	assert.Equal(t, "short", result["pulse_mode"])
}

func TestUDSStartStop(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.StreamStart(ctx)
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	// Second start reports the engine error through the RPC envelope.
	resp, err = client.StreamStart(ctx)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInternalError, resp.Error.Code)

	resp, err = client.StreamStop(ctx)
	require.NoError(t, err)
	assert.Nil(t, resp.Error)
}

func TestUDSSetPulseMode(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.SetPulseMode(ctx, "long")
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	resp, err = client.SetPulseMode(ctx, "medium")
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
}

func TestUDSUnknownMethod(t *testing.T) {
	client, _ := startTestServer(t)

	resp, err := client.Call(context.Background(), "warp_drive", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeMethodNotFound, resp.Error.Code)
}

func TestUDSGetStats(t *testing.T) {
	client, _ := startTestServer(t)

	resp, err := client.GetStats(context.Background())
	require.NoError(t, err)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, result, "transfers_completed")
	assert.Contains(t, result, "missing_frames")
}
