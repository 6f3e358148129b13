// Package packet implements the UDP wire protocol that carries extracted
// frame payloads to the receiver.
//
// Every packet is a fixed 48-byte header followed by up to MaxPayload
// bytes of one payload fragment. All header fields are big-endian uint32:
//
//	Offset  Field
//	------  -----
//	0       start_marker        0xABCD1234
//	4       sequence_number     global, monotonic, never reused
//	8       total_length        header + fragment bytes
//	12      payload_length      fragment bytes only
//	16      frame_id            monotonic, one per payload consumed
//	20      fragment_offset     byte offset of fragment within payload
//	24      fragment_count      fragments for this frame_id
//	28      fragment_index      0-based
//	32      frame_payload_total payload bytes for the whole frame
//	36      missing_frame_count cumulative at send time
//	40      checksum            CRC32 (IEEE) of the fragment bytes
//	44      end_marker          0x5678DCBA
//
// followed by payload_length fragment bytes. Fragments of one frame_id
// reassembled in fragment_offset order reconstruct the payload exactly.
package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	StartMarker uint32 = 0xABCD1234
	EndMarker   uint32 = 0x5678DCBA

	// HeaderSize is the fixed wire header length in bytes.
	HeaderSize = 48

	// MaxPayload is the largest fragment carried by one packet.
	MaxPayload = 1360

	// MaxPacketSize is the largest possible packet on the wire.
	MaxPacketSize = HeaderSize + MaxPayload
)

// Decode errors.
var (
	ErrTruncated = errors.New("packet: truncated")
	ErrBadMarker = errors.New("packet: bad start or end marker")
	ErrChecksum  = errors.New("packet: checksum mismatch")
)

// Header carries the sequencing and integrity metadata of one packet.
// Markers, total_length and checksum are derived during encoding.
type Header struct {
	SequenceNumber    uint32
	PayloadLength     uint32
	FrameID           uint32
	FragmentOffset    uint32
	FragmentCount     uint32
	FragmentIndex     uint32
	FramePayloadTotal uint32
	MissingFrameCount uint32
}

// NumFragments returns how many packets a payload of the given length
// occupies on the wire. A zero-length payload still takes one packet so
// the frame id is observable by the receiver.
func NumFragments(payloadLen int) int {
	if payloadLen <= 0 {
		return 1
	}
	return (payloadLen + MaxPayload - 1) / MaxPayload
}

// Checksum computes the integrity checksum over fragment bytes.
func Checksum(fragment []byte) uint32 {
	return crc32.ChecksumIEEE(fragment)
}

// Encode serialises one fragment packet into dst, which must hold
// HeaderSize+len(fragment) bytes, and returns the packet length.
// h.PayloadLength is taken from len(fragment).
func Encode(dst []byte, h Header, fragment []byte) (int, error) {
	if len(fragment) > MaxPayload {
		return 0, fmt.Errorf("packet: fragment of %d bytes exceeds max payload %d", len(fragment), MaxPayload)
	}
	total := HeaderSize + len(fragment)
	if len(dst) < total {
		return 0, fmt.Errorf("packet: buffer of %d bytes too small for %d-byte packet", len(dst), total)
	}

	be := binary.BigEndian
	be.PutUint32(dst[0:], StartMarker)
	be.PutUint32(dst[4:], h.SequenceNumber)
	be.PutUint32(dst[8:], uint32(total))
	be.PutUint32(dst[12:], uint32(len(fragment)))
	be.PutUint32(dst[16:], h.FrameID)
	be.PutUint32(dst[20:], h.FragmentOffset)
	be.PutUint32(dst[24:], h.FragmentCount)
	be.PutUint32(dst[28:], h.FragmentIndex)
	be.PutUint32(dst[32:], h.FramePayloadTotal)
	be.PutUint32(dst[36:], h.MissingFrameCount)
	be.PutUint32(dst[40:], Checksum(fragment))
	be.PutUint32(dst[44:], EndMarker)
	copy(dst[HeaderSize:], fragment)
	return total, nil
}

// Decoded is the receiver-side view of one packet.
type Decoded struct {
	Header
	TotalLength uint32
	Checksum    uint32
	Fragment    []byte
}

// Decode parses and verifies one packet: markers, declared lengths and
// fragment checksum. The returned fragment aliases data.
func Decode(data []byte) (Decoded, error) {
	if len(data) < HeaderSize {
		return Decoded{}, ErrTruncated
	}
	be := binary.BigEndian
	if be.Uint32(data[0:]) != StartMarker || be.Uint32(data[44:]) != EndMarker {
		return Decoded{}, ErrBadMarker
	}

	d := Decoded{
		Header: Header{
			SequenceNumber:    be.Uint32(data[4:]),
			PayloadLength:     be.Uint32(data[12:]),
			FrameID:           be.Uint32(data[16:]),
			FragmentOffset:    be.Uint32(data[20:]),
			FragmentCount:     be.Uint32(data[24:]),
			FragmentIndex:     be.Uint32(data[28:]),
			FramePayloadTotal: be.Uint32(data[32:]),
			MissingFrameCount: be.Uint32(data[36:]),
		},
		TotalLength: be.Uint32(data[8:]),
		Checksum:    be.Uint32(data[40:]),
	}
	if int(d.TotalLength) != HeaderSize+int(d.PayloadLength) || len(data) < int(d.TotalLength) {
		return Decoded{}, ErrTruncated
	}
	d.Fragment = data[HeaderSize:d.TotalLength]
	if Checksum(d.Fragment) != d.Checksum {
		return Decoded{}, ErrChecksum
	}
	return d, nil
}
