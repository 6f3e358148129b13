// Package source provides transfer sources: backends that produce raw
// hardware transfers and hand them to the streaming engine.
package source

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

// DeliverFunc receives one raw transfer. The buffer is only valid for
// the duration of the call; the receiver copies what it keeps.
type DeliverFunc func(data []byte)

// Source produces raw transfers until the context is cancelled or the
// backend fails. Run owns the backend's resources: it opens them on
// entry and releases them before returning. The engine restarts a
// failed source by calling Run again.
type Source interface {
	Run(ctx context.Context, mode frame.PulseMode, deliver DeliverFunc) error
}

// Config selects and parameterises a backend.
type Config struct {
	Type    string         `mapstructure:"type"`
	Options map[string]any `mapstructure:"options"`
}

// New builds the configured source backend.
func New(cfg Config) (Source, error) {
	switch cfg.Type {
	case "chardev", "":
		var o chardevOptions
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, err
		}
		return newChardev(o)
	case "udp":
		var o udpOptions
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, err
		}
		return newUDP(o)
	case "replay":
		var o replayOptions
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, err
		}
		return newReplay(o)
	case "sim":
		var o SimOptions
		if err := decodeOptions(cfg.Options, &o); err != nil {
			return nil, err
		}
		return NewSim(o), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func decodeOptions(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode source options: %w", err)
	}
	return nil
}
