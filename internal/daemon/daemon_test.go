package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madlink306/antsdr-streamd/internal/command"
)

func writeDaemonConfig(t *testing.T, dir string) string {
	t.Helper()
	body := `antsdrd:
  control:
    socket: "` + filepath.Join(dir, "antsdrd.sock") + `"
    pid_file: "` + filepath.Join(dir, "antsdrd.pid") + `"
  log:
    level: error
    format: text
  metrics:
    enabled: false
  source:
    type: sim
    options:
      interval: 5ms
`
	path := filepath.Join(dir, "antsdrd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDaemonStartStop(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeDaemonConfig(t, dir)

	d, err := New(cfgPath, "", "")
	require.NoError(t, err)
	require.NoError(t, d.Start())
	defer d.Stop()

	// PID file written.
	pid, err := os.ReadFile(filepath.Join(dir, "antsdrd.pid"))
	require.NoError(t, err)
	assert.NotEmpty(t, pid)

	// Control plane reachable and able to drive the engine.
	client := command.NewUDSClient(filepath.Join(dir, "antsdrd.sock"), 2*time.Second)
	require.Eventually(t, func() bool {
		return client.Ping(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := client.StreamStart(context.Background())
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	resp, err = client.StreamStatus(context.Background())
	require.NoError(t, err)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "streaming", result["state"])

	resp, err = client.StreamStop(context.Background())
	require.NoError(t, err)
	require.Nil(t, resp.Error)
}

func TestDaemonShutdownCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeDaemonConfig(t, dir)

	d, err := New(cfgPath, "", "")
	require.NoError(t, err)
	require.NoError(t, d.Start())

	done := make(chan error, 1)
	go func() { done <- d.Run() }()

	client := command.NewUDSClient(filepath.Join(dir, "antsdrd.sock"), 2*time.Second)
	require.Eventually(t, func() bool {
		return client.Ping(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	_, err = client.Shutdown(context.Background())
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down")
	}

	// PID file removed on shutdown.
	_, err = os.Stat(filepath.Join(dir, "antsdrd.pid"))
	assert.True(t, os.IsNotExist(err))
}
