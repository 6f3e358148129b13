package source

import (
	"context"
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

// SimOptions parameterise the synthetic source.
type SimOptions struct {
	// Interval between transfers; zero means as fast as possible.
	Interval time.Duration `mapstructure:"interval"`
	// Count limits the number of frames produced; zero means unlimited.
	Count int `mapstructure:"count"`
	// DropEvery withholds every Nth frame while still consuming its
	// counter, producing gaps for the tracker to find. Zero disables.
	DropEvery int `mapstructure:"drop_every"`
	// CorruptEvery zeroes the footer of every Nth frame, producing
	// header-only transfers. Zero disables.
	CorruptEvery int `mapstructure:"corrupt_every"`
	// Seed for the payload generator; zero picks the current time.
	Seed int64 `mapstructure:"seed"`
}

// Sim produces well-formed synthetic transfers without hardware. It
// backs tests, benchmarks and smoke runs of the full pipeline.
type Sim struct {
	opts SimOptions
}

func NewSim(opts SimOptions) *Sim {
	return &Sim{opts: opts}
}

func (s *Sim) Run(ctx context.Context, mode frame.PulseMode, deliver DeliverFunc) error {
	seed := s.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	var ticker *time.Ticker
	if s.opts.Interval > 0 {
		ticker = time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
	}

	buf := make([]byte, mode.TransferBytes())
	for n, counter := 0, uint32(1); s.opts.Count == 0 || n < s.opts.Count; n, counter = n+1, counter+1 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}

		if s.opts.DropEvery > 0 && (n+1)%s.opts.DropEvery == 0 {
			continue
		}
		fillTransfer(buf, mode, counter, rng)
		if s.opts.CorruptEvery > 0 && (n+1)%s.opts.CorruptEvery == 0 {
			// Erase the footer word: header-only transfer.
			binary.LittleEndian.PutUint32(buf[len(buf)-frame.WordSize:], 0)
		}
		deliver(buf)
	}
	return nil
}

// fillTransfer writes one complete frame into buf, which must be
// mode.TransferBytes() long.
func fillTransfer(buf []byte, mode frame.PulseMode, counter uint32, rng *rand.Rand) {
	le := binary.LittleEndian
	words := mode.Words()
	le.PutUint32(buf[0:], frame.StartMarkerA)
	for w := 1; w < words-2; w++ {
		// High bit kept clear so sample words never collide with markers.
		le.PutUint32(buf[w*frame.WordSize:], rng.Uint32()&0x7FFFFFFF)
	}
	le.PutUint32(buf[(words-2)*frame.WordSize:], counter)
	le.PutUint32(buf[(words-1)*frame.WordSize:], frame.EndMarker)
}
