package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "antsdrd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "antsdrd:\n  stream:\n    destination: \"192.168.1.50:5600\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/run/antsdrd.sock", cfg.Control.Socket)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 5*time.Second, cfg.Metrics.CollectInterval)
	assert.Equal(t, "192.168.1.50:5600", cfg.Stream.Destination)
	assert.Equal(t, "short", cfg.Stream.PulseMode)
	assert.Equal(t, 256, cfg.Stream.RingCapacity)
	assert.Equal(t, time.Second, cfg.Stream.StopTimeout)
	assert.Equal(t, "chardev", cfg.Source.Type)
	assert.Equal(t, frame.PulseShort, cfg.PulseMode())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `antsdrd:
  log:
    level: debug
    format: text
  stream:
    pulse_mode: long
    queue_capacity: 64
  source:
    type: sim
    options:
      count: 100
      interval: 2ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, frame.PulseLong, cfg.PulseMode())
	assert.Equal(t, 64, cfg.Stream.QueueCapacity)
	assert.Equal(t, "sim", cfg.Source.Type)
	assert.Equal(t, 100, cfg.Source.Options["count"])
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANTSDRD_LOG_LEVEL", "warn")
	path := writeConfig(t, "antsdrd:\n  log:\n    level: info\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad log level", "antsdrd:\n  log:\n    level: loud\n"},
		{"bad pulse mode", "antsdrd:\n  stream:\n    pulse_mode: medium\n"},
		{"bad source type", "antsdrd:\n  source:\n    type: carrier-pigeon\n"},
		{"slot smaller than payload", "antsdrd:\n  stream:\n    pulse_mode: long\n    ring_slot_size: 100\n"},
		{"accum smaller than transfer", "antsdrd:\n  stream:\n    accum_size: 64\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "chardev", cfg.Source.Type)
}
