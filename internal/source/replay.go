package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcap"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

type replayOptions struct {
	// Path of a pcap capture of encapsulated transfers.
	Path string `mapstructure:"path"`
	// Interval between replayed transfers; zero replays at full speed.
	Interval time.Duration `mapstructure:"interval"`
	// Loop restarts the file on EOF instead of stopping.
	Loop bool `mapstructure:"loop"`
}

// replay feeds transfers from a recorded pcap file. Each datagram's
// application payload is treated as one raw transfer, mirroring what
// the udp source would have received live.
type replay struct {
	opts replayOptions
}

func newReplay(o replayOptions) (*replay, error) {
	if o.Path == "" {
		return nil, errors.New("replay source: path is required")
	}
	return &replay{opts: o}, nil
}

func (r *replay) Run(ctx context.Context, mode frame.PulseMode, deliver DeliverFunc) error {
	for {
		if err := r.replayOnce(ctx, deliver); err != nil {
			return err
		}
		if !r.opts.Loop {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (r *replay) replayOnce(ctx context.Context, deliver DeliverFunc) error {
	handle, err := pcap.OpenOffline(r.opts.Path)
	if err != nil {
		return fmt.Errorf("open pcap %s: %w", r.opts.Path, err)
	}
	defer handle.Close()

	var ticker *time.Ticker
	if r.opts.Interval > 0 {
		ticker = time.NewTicker(r.opts.Interval)
		defer ticker.Stop()
	}

	for {
		data, _, err := handle.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pcap %s: %w", r.opts.Path, err)
		}

		pkt := gopacket.NewPacket(data, handle.LinkType(), gopacket.NoCopy)
		app := pkt.ApplicationLayer()
		if app == nil || len(app.Payload()) == 0 {
			continue
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		deliver(app.Payload())
	}
}
