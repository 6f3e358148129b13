package emit

import (
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// Sender delivers encoded packets to the destination. SendBatch returns
// how many packets were handed to the transport before the first error.
type Sender interface {
	SendBatch(pkts [][]byte) (int, error)
	Close() error
}

// UDPSender sends packets over a connected UDP socket, batching writes
// through sendmmsg where the platform supports it.
type UDPSender struct {
	conn *net.UDPConn
	pc   *ipv4.PacketConn
	msgs []ipv4.Message
}

// NewUDPSender connects to a "host:port" destination.
func NewUDPSender(destination string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", destination)
	if err != nil {
		return nil, fmt.Errorf("resolve destination %q: %w", destination, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", destination, err)
	}
	return &UDPSender{conn: conn, pc: ipv4.NewPacketConn(conn)}, nil
}

func (s *UDPSender) SendBatch(pkts [][]byte) (int, error) {
	if cap(s.msgs) < len(pkts) {
		s.msgs = make([]ipv4.Message, 0, len(pkts))
	}
	s.msgs = s.msgs[:0]
	for _, p := range pkts {
		s.msgs = append(s.msgs, ipv4.Message{Buffers: [][]byte{p}})
	}

	sent := 0
	for sent < len(s.msgs) {
		n, err := s.pc.WriteBatch(s.msgs[sent:], 0)
		sent += n
		if err != nil {
			return sent, fmt.Errorf("udp send: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return sent, nil
}

func (s *UDPSender) Close() error {
	return s.conn.Close()
}

// LocalAddr exposes the bound source address, for logging.
func (s *UDPSender) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}
