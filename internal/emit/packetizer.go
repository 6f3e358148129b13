// Package emit drains the payload ring and repacketizes payloads onto
// the UDP data plane.
package emit

import (
	"log/slog"
	"sync"

	"github.com/madlink306/antsdr-streamd/internal/packet"
	"github.com/madlink306/antsdr-streamd/internal/ring"
)

// MaxPacketsPerDrain bounds the packets emitted by one Drain call so a
// deep ring cannot monopolize the transmit goroutine.
const MaxPacketsPerDrain = 200

// Packetizer fragments ring payloads into wire packets and hands them
// to a Sender. Sequence numbers and frame ids are monotonic for the
// lifetime of the packetizer and are never reused across sessions.
type Packetizer struct {
	log     *slog.Logger
	ring    *ring.Ring
	missing func() uint64 // cumulative missing-frame count at send time

	mu     sync.Mutex
	sender Sender
	seq    uint32
	frame  uint32
}

// NewPacketizer wires the packetizer to its ring. missing supplies the
// gap tracker's cumulative count stamped into every header.
func NewPacketizer(r *ring.Ring, missing func() uint64, logger *slog.Logger) *Packetizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Packetizer{
		log:     logger.With("component", "packetizer"),
		ring:    r,
		missing: missing,
	}
}

// SetSender swaps the destination. A nil sender suspends emission;
// payloads stay in the ring until a sender is installed.
func (p *Packetizer) SetSender(s Sender) {
	p.mu.Lock()
	p.sender = s
	p.mu.Unlock()
}

// Drain consumes ring payloads until the ring is empty or the per-call
// packet cap is reached. It returns the number of packets sent and
// whether payloads remain, so the caller can reschedule itself. A send
// failure aborts the call; remaining payloads are retried on the next
// invocation.
func (p *Packetizer) Drain() (int, bool, error) {
	sent := 0
	for sent < MaxPacketsPerDrain {
		p.mu.Lock()
		s := p.sender
		if s == nil {
			p.mu.Unlock()
			return sent, false, nil
		}
		payload, ok := p.ring.Get()
		if !ok {
			p.mu.Unlock()
			return sent, false, nil
		}

		pkts := p.encodeFrame(payload)
		frameID := p.frame - 1
		// Slot contents were copied into the packets; the slot can be
		// recycled before the send completes.
		p.ring.Release()
		// The lock is never held across the send; a stalled socket must
		// not block SetSender.
		p.mu.Unlock()

		n, err := s.SendBatch(pkts)
		sent += n
		if err != nil {
			p.log.Warn("send failed, aborting drain",
				"frame_id", frameID, "packets_sent", n, "error", err)
			return sent, p.ring.Len() > 0, err
		}
	}
	return sent, p.ring.Len() > 0, nil
}

// encodeFrame builds the fragment packets for one payload, consuming
// one frame id and one sequence number per packet.
func (p *Packetizer) encodeFrame(payload []byte) [][]byte {
	frags := packet.NumFragments(len(payload))
	frameID := p.frame
	p.frame++

	missing := uint32(p.missing())
	pkts := make([][]byte, 0, frags)
	for i := 0; i < frags; i++ {
		off := i * packet.MaxPayload
		end := off + packet.MaxPayload
		if end > len(payload) {
			end = len(payload)
		}
		h := packet.Header{
			SequenceNumber:    p.seq,
			FrameID:           frameID,
			FragmentOffset:    uint32(off),
			FragmentCount:     uint32(frags),
			FragmentIndex:     uint32(i),
			FramePayloadTotal: uint32(len(payload)),
			MissingFrameCount: missing,
		}
		p.seq++

		buf := make([]byte, packet.HeaderSize+(end-off))
		n, err := packet.Encode(buf, h, payload[off:end])
		if err != nil {
			// Unreachable with a correctly sized buffer.
			p.log.Error("encode failed", "frame_id", frameID, "error", err)
			continue
		}
		pkts = append(pkts, buf[:n])
	}
	return pkts
}
