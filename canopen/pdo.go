package canopen

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/DrJosh9000/hudl/can"
)

// TransmissionEvent is the event-driven (manufacturer specific) transmission
// type.
const TransmissionEvent uint8 = 0xFE

// ErrShortFrame is returned when a PDO payload is shorter than its mapping.
var ErrShortFrame = errors.New("canopen: frame shorter than mapped length")

// Mapping is one field of a PDO mapping.
type Mapping struct {
	Index    uint16
	Subindex uint8
	Bits     int
	Var      Var
}

// Encode returns the mapping object value index<<16 | subindex<<8 | bits.
func (m Mapping) Encode() uint32 {
	return uint32(m.Index)<<16 | uint32(m.Subindex)<<8 | uint32(m.Bits)
}

// DecodeMapping splits a mapping object value.
func DecodeMapping(v uint32) (index uint16, sub uint8, bits int) {
	return uint16(v >> 16), uint8(v >> 8), int(v & 0xFF)
}

// RPDO is a receive PDO: the peer frame it consumes and where each field
// lands.
type RPDO struct {
	Number   int // 0-based
	Peer     NodeID
	COBID    uint32
	Trigger  uint8
	Mappings []Mapping
}

// Bits returns the total mapped length.
func (r RPDO) Bits() int {
	n := 0
	for _, m := range r.Mappings {
		n += m.Bits
	}
	return n
}

// Len returns the payload length in bytes.
func (r RPDO) Len() int { return (r.Bits() + 7) / 8 }

// Values decodes the payload of f as a little-endian bit stream, one value
// per mapping.
func (r RPDO) Values(f can.Frame) ([]uint32, error) {
	if f.ID != r.COBID {
		return nil, fmt.Errorf("canopen: frame 0x%03X is not RPDO%d (0x%03X)", f.ID, r.Number, r.COBID)
	}
	if int(f.Len) < r.Len() {
		return nil, fmt.Errorf("%w: RPDO%d got %d bytes, want %d", ErrShortFrame, r.Number, f.Len, r.Len())
	}
	raw := binary.LittleEndian.Uint64(f.Data[:])
	out := make([]uint32, len(r.Mappings))
	for i, m := range r.Mappings {
		out[i] = uint32(raw & (1<<m.Bits - 1))
		raw >>= m.Bits
	}
	return out, nil
}

// Apply decodes f and stores each value in its bound variable. Nothing is
// stored if f is too short.
func (r RPDO) Apply(f can.Frame) error {
	vals, err := r.Values(f)
	if err != nil {
		return err
	}
	for i, m := range r.Mappings {
		m.Var.Set(vals[i])
	}
	return nil
}

// Pack encodes values into the frame a peer would transmit. Values are
// truncated to their mapped width.
func (r RPDO) Pack(values ...uint32) (can.Frame, error) {
	if len(values) != len(r.Mappings) {
		return can.Frame{}, fmt.Errorf("canopen: RPDO%d has %d fields, got %d values", r.Number, len(r.Mappings), len(values))
	}
	var raw uint64
	shift := 0
	for i, m := range r.Mappings {
		raw |= (uint64(values[i]) & (1<<m.Bits - 1)) << shift
		shift += m.Bits
	}
	f := can.Frame{ID: r.COBID, Len: uint8(r.Len())}
	binary.LittleEndian.PutUint64(f.Data[:], raw)
	return f, nil
}
