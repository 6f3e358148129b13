// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/madlink306/antsdr-streamd/internal/frame"
	"github.com/madlink306/antsdr-streamd/internal/source"
)

// GlobalConfig is the top-level static configuration. Maps to the
// `antsdrd:` root key in YAML.
type GlobalConfig struct {
	Control ControlConfig `mapstructure:"control"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Source  SourceConfig  `mapstructure:"source"`
}

// ControlConfig contains local control plane settings.
type ControlConfig struct {
	Socket  string `mapstructure:"socket"`
	PIDFile string `mapstructure:"pid_file"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Listen          string        `mapstructure:"listen"`
	Path            string        `mapstructure:"path"`
	CollectInterval time.Duration `mapstructure:"collect_interval"`
}

// StreamConfig contains the pipeline settings.
type StreamConfig struct {
	PulseMode     string        `mapstructure:"pulse_mode"`  // short / long
	Destination   string        `mapstructure:"destination"` // host:port, empty = hold until set
	AutoStart     bool          `mapstructure:"auto_start"`  // begin streaming on daemon start
	QueueCapacity int           `mapstructure:"queue_capacity"`
	RingCapacity  int           `mapstructure:"ring_capacity"`
	RingSlotSize  int           `mapstructure:"ring_slot_size"`
	AccumSize     int           `mapstructure:"accum_size"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
}

// SourceConfig selects the transfer source backend.
type SourceConfig struct {
	Type    string         `mapstructure:"type"` // chardev / udp / replay / sim
	Options map[string]any `mapstructure:"options"`
}

// SourceSpec converts the section into the source package's config.
func (s SourceConfig) SourceSpec() source.Config {
	return source.Config{Type: s.Type, Options: s.Options}
}

// configRoot is the top-level wrapper matching the YAML structure `antsdrd: ...`.
type configRoot struct {
	Antsdrd GlobalConfig `mapstructure:"antsdrd"`
}

// Load loads configuration from file. The YAML file uses `antsdrd:` as
// root key; env vars use the ANTSDRD_ prefix via the key replacer
// (e.g. key "antsdrd.log.level" → env "ANTSDRD_LOG_LEVEL").
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Antsdrd

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is given.
func Default() *GlobalConfig {
	v := viper.New()
	setDefaults(v)
	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		panic(fmt.Sprintf("defaults do not unmarshal: %v", err))
	}
	return &root.Antsdrd
}

// setDefaults sets default values. All keys use the "antsdrd." prefix
// to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("antsdrd.control.socket", "/var/run/antsdrd.sock")
	v.SetDefault("antsdrd.control.pid_file", "/var/run/antsdrd.pid")

	v.SetDefault("antsdrd.log.level", "info")
	v.SetDefault("antsdrd.log.format", "json")
	v.SetDefault("antsdrd.log.outputs.file.enabled", false)
	v.SetDefault("antsdrd.log.outputs.file.path", "/var/log/antsdrd/antsdrd.log")
	v.SetDefault("antsdrd.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("antsdrd.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("antsdrd.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("antsdrd.log.outputs.file.rotation.compress", true)

	v.SetDefault("antsdrd.metrics.enabled", true)
	v.SetDefault("antsdrd.metrics.listen", ":9102")
	v.SetDefault("antsdrd.metrics.path", "/metrics")
	v.SetDefault("antsdrd.metrics.collect_interval", "5s")

	v.SetDefault("antsdrd.stream.pulse_mode", "short")
	v.SetDefault("antsdrd.stream.destination", "")
	v.SetDefault("antsdrd.stream.auto_start", false)
	v.SetDefault("antsdrd.stream.queue_capacity", 256)
	v.SetDefault("antsdrd.stream.ring_capacity", 256)
	v.SetDefault("antsdrd.stream.ring_slot_size", 1600)
	v.SetDefault("antsdrd.stream.accum_size", 65536)
	v.SetDefault("antsdrd.stream.stop_timeout", "1s")

	v.SetDefault("antsdrd.source.type", "chardev")
	v.SetDefault("antsdrd.source.options", map[string]any{"path": "/dev/antsdr_dma"})
}

// Validate checks the configuration for consistency.
func (cfg *GlobalConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	mode, err := frame.ParsePulseMode(cfg.Stream.PulseMode)
	if err != nil {
		return err
	}
	if cfg.Stream.RingSlotSize < mode.PayloadBytes() {
		return fmt.Errorf("ring_slot_size %d too small for %s payloads (%d bytes)",
			cfg.Stream.RingSlotSize, mode, mode.PayloadBytes())
	}
	if cfg.Stream.Destination != "" {
		if _, err := net.ResolveUDPAddr("udp", cfg.Stream.Destination); err != nil {
			return fmt.Errorf("invalid destination %q: %w", cfg.Stream.Destination, err)
		}
	}
	if cfg.Stream.AccumSize <= mode.TransferBytes() {
		return fmt.Errorf("accum_size %d must exceed one %s transfer (%d bytes)",
			cfg.Stream.AccumSize, mode, mode.TransferBytes())
	}

	switch cfg.Source.Type {
	case "chardev", "udp", "replay", "sim":
	default:
		return fmt.Errorf("unknown source type %q", cfg.Source.Type)
	}
	if cfg.Control.Socket == "" {
		return fmt.Errorf("control.socket is required")
	}
	return nil
}

// PulseMode returns the parsed pulse mode. Validate must have passed.
func (cfg *GlobalConfig) PulseMode() frame.PulseMode {
	mode, _ := frame.ParsePulseMode(cfg.Stream.PulseMode)
	return mode
}
