package canopen

import (
	"errors"
	"fmt"
)

// Object indices used by the dictionary.
const (
	IndexDeviceType    uint16 = 0x1000
	IndexErrorRegister uint16 = 0x1001
	IndexHeartbeatTime uint16 = 0x1017
	IndexIdentity      uint16 = 0x1018
	IndexSDOServer     uint16 = 0x1200
	IndexRPDOComm      uint16 = 0x1400 // + RPDO number
	IndexRPDOMapping   uint16 = 0x1600 // + RPDO number
	IndexRPDOStorage   uint16 = 0x2100 // + RPDO number
)

// Dictionary construction errors.
var (
	ErrMappingTooLong = errors.New("canopen: mapped bits exceed 64")
	ErrWidthMismatch  = errors.New("canopen: storage width does not match mapped bits")
	ErrOrder          = errors.New("canopen: entries not in strictly increasing order")
	ErrFieldCount     = errors.New("canopen: RPDO needs 1 to 8 fields")
	ErrNilVar         = errors.New("canopen: field has no storage")
	ErrDuplicateCOBID = errors.New("canopen: duplicate RPDO COB-ID")
	ErrTooManyRPDOs   = errors.New("canopen: too many RPDOs")
)

// Entry is one object dictionary entry.
type Entry struct {
	Index    uint16
	Subindex uint8
	Type     DataType
	Access   AccessMode
	Storage  Var
}

// IsEnd reports whether e is the end marker that terminates the entry list.
func (e Entry) IsEnd() bool {
	return e.Index == 0 && e.Storage == nil
}

func (e Entry) String() string {
	if e.IsEnd() {
		return "end"
	}
	return fmt.Sprintf("%04X:%02X %v %v = %#x", e.Index, e.Subindex, e.Type, e.Access, e.Storage.Get())
}

func key(index uint16, sub uint8) uint32 {
	return uint32(index)<<8 | uint32(sub)
}

// Dictionary is an immutable object dictionary. Use a Builder to make one.
type Dictionary struct {
	node    NodeID
	entries []Entry
	index   map[uint32]int
	objects map[uint16]bool
	rpdos   []RPDO
}

func newDictionary(node NodeID, entries []Entry, rpdos []RPDO) (*Dictionary, error) {
	d := &Dictionary{
		node:    node,
		entries: make([]Entry, 0, len(entries)+1),
		index:   make(map[uint32]int, len(entries)),
		objects: make(map[uint16]bool),
		rpdos:   rpdos,
	}
	for i, e := range entries {
		if i > 0 {
			prev := entries[i-1]
			if key(e.Index, e.Subindex) <= key(prev.Index, prev.Subindex) {
				return nil, fmt.Errorf("%w: %04X:%02X after %04X:%02X", ErrOrder, e.Index, e.Subindex, prev.Index, prev.Subindex)
			}
		}
		if !Bound(e.Storage) {
			return nil, fmt.Errorf("%04X:%02X: %w", e.Index, e.Subindex, ErrNilVar)
		}
		d.index[key(e.Index, e.Subindex)] = len(d.entries)
		d.objects[e.Index] = true
		d.entries = append(d.entries, e)
	}
	d.entries = append(d.entries, Entry{})
	return d, nil
}

// Node returns the node id the dictionary was built for.
func (d *Dictionary) Node() NodeID { return d.node }

// Entries returns a copy of the entries in (index, subindex) order, ending
// with the end marker.
func (d *Dictionary) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// Len returns the number of entries including the end marker.
func (d *Dictionary) Len() int { return len(d.entries) }

// Find looks up an entry.
func (d *Dictionary) Find(index uint16, sub uint8) (Entry, bool) {
	i, ok := d.index[key(index, sub)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// HasObject reports whether any entry has the index.
func (d *Dictionary) HasObject(index uint16) bool { return d.objects[index] }

// RPDOs returns the receive PDOs in number order.
func (d *Dictionary) RPDOs() []RPDO {
	return append([]RPDO(nil), d.rpdos...)
}
