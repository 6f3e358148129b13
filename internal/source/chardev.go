package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

type chardevOptions struct {
	// Path of the DMA character device.
	Path string `mapstructure:"path"`
}

// chardev reads fixed-size transfers from the DMA character device.
// Each read returns exactly one completed hardware transfer.
type chardev struct {
	path string
}

func newChardev(o chardevOptions) (*chardev, error) {
	if o.Path == "" {
		return nil, errors.New("chardev source: path is required")
	}
	return &chardev{path: o.Path}, nil
}

func (c *chardev) Run(ctx context.Context, mode frame.PulseMode, deliver DeliverFunc) error {
	f, err := os.Open(c.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}
	defer f.Close()

	// Reads block in the kernel; closing the device is the only way to
	// interrupt one when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			f.Close()
		case <-done:
		}
	}()

	buf := make([]byte, mode.TransferBytes())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", c.path, err)
		}
		deliver(buf)
	}
}
