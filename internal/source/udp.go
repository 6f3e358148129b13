package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/madlink306/antsdr-streamd/internal/frame"
)

type udpOptions struct {
	// Listen address for encapsulated transfers, e.g. ":5600".
	Listen string `mapstructure:"listen"`
}

// udpSource accepts transfers forwarded over UDP, one datagram per
// transfer. Useful when the capture hardware lives on another host.
type udpSource struct {
	listen string
}

func newUDP(o udpOptions) (*udpSource, error) {
	if o.Listen == "" {
		return nil, errors.New("udp source: listen address is required")
	}
	return &udpSource{listen: o.Listen}, nil
}

func (u *udpSource) Run(ctx context.Context, mode frame.PulseMode, deliver DeliverFunc) error {
	addr, err := net.ResolveUDPAddr("udp", u.listen)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", u.listen, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", u.listen, err)
	}
	defer conn.Close()

	buf := make([]byte, mode.TransferBytes())
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Short deadline so cancellation is noticed between datagrams.
		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read %s: %w", u.listen, err)
		}
		if n == 0 {
			continue
		}
		deliver(buf[:n])
	}
}
