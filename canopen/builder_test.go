package canopen

import (
	"errors"
	"testing"
)

type vars struct {
	voltage  uint16
	temps    [4]uint16
	status   uint16
	torque   int16
	position int32
	velocity int32
	beat     uint16
}

func testBuilder(v *vars) *Builder {
	return NewBuilder(0x0A).
		Identity(Identity{DeviceType: 0x191, VendorID: 0x2A, ProductCode: 0x4855, Revision: 0x10002, Serial: 7}).
		SDOServer().
		HeartbeatProducer(&v.beat).
		RPDO(0x05, 1, Field{Var: Uint16(&v.voltage)}).
		RPDO(0x08, 1,
			Field{Var: Uint16(&v.temps[0])},
			Field{Var: Uint16(&v.temps[1])},
			Field{Var: Uint16(&v.temps[2])},
			Field{Var: Uint16(&v.temps[3])},
		).
		RPDO(0x01, 1,
			Field{Var: Uint16(&v.status)},
			Field{Var: Int16(&v.torque)},
			Field{Var: Int32(&v.position)},
		).
		RPDO(0x01, 2, Field{Var: Int32(&v.velocity)})
}

func TestBuildLayout(t *testing.T) {
	var v vars
	d, err := testBuilder(&v).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	tests := []struct {
		index uint16
		sub   uint8
		typ   DataType
		want  uint32
	}{
		{0x1000, 0, U32, 0x191},
		{0x1018, 0, U8, 4},
		{0x1018, 3, U32, 0x10002},
		{0x1200, 1, U32, 0x60A},
		{0x1200, 2, U32, 0x58A},
		{0x1400, 0, U8, 2},
		{0x1400, 1, U32, 0x185},
		{0x1400, 2, U8, 0xFE},
		{0x1401, 1, U32, 0x188},
		{0x1402, 1, U32, 0x181},
		{0x1403, 1, U32, 0x281},
		{0x1600, 0, U8, 1},
		{0x1600, 1, U32, 0x21000110},
		{0x1601, 4, U32, 0x21010410},
		{0x1602, 3, U32, 0x21020320},
		{0x2101, 0, U8, 4},
	}
	for _, test := range tests {
		e, ok := d.Find(test.index, test.sub)
		if !ok {
			t.Errorf("Find(%04X, %02X) not found", test.index, test.sub)
			continue
		}
		if e.Type != test.typ || e.Storage.Get() != test.want {
			t.Errorf("%04X:%02X = %v %#x, want %v %#x", test.index, test.sub, e.Type, e.Storage.Get(), test.typ, test.want)
		}
	}
}

func TestBuildOrderAndEnd(t *testing.T) {
	var v vars
	d := testBuilder(&v).MustBuild()
	entries := d.Entries()
	if len(entries) != d.Len() {
		t.Errorf("len(Entries()) = %d, Len() = %d", len(entries), d.Len())
	}
	last := entries[len(entries)-1]
	if !last.IsEnd() {
		t.Errorf("last entry = %v, want end marker", last)
	}
	for i, e := range entries[:len(entries)-1] {
		if e.IsEnd() {
			t.Fatalf("entry %d is an end marker", i)
		}
		if i > 0 && key(e.Index, e.Subindex) <= key(entries[i-1].Index, entries[i-1].Subindex) {
			t.Errorf("entry %d (%04X:%02X) not after %04X:%02X", i, e.Index, e.Subindex, entries[i-1].Index, entries[i-1].Subindex)
		}
	}
}

func TestMappingsFitStorage(t *testing.T) {
	var v vars
	d := testBuilder(&v).MustBuild()
	for _, r := range d.RPDOs() {
		if r.Bits() > 64 {
			t.Errorf("RPDO%d maps %d bits", r.Number, r.Bits())
		}
		for _, m := range r.Mappings {
			e, ok := d.Find(m.Index, m.Subindex)
			if !ok {
				t.Errorf("RPDO%d maps missing %04X:%02X", r.Number, m.Index, m.Subindex)
				continue
			}
			if got, want := e.Type.Size(), (m.Bits+7)/8; got != want {
				t.Errorf("%04X:%02X is %d bytes, mapping needs %d", m.Index, m.Subindex, got, want)
			}
			if e.Access != ProcessReadWrite {
				t.Errorf("%04X:%02X access = %v, want rwp", m.Index, m.Subindex, e.Access)
			}
			mv, ok := d.Find(IndexRPDOMapping+uint16(r.Number), m.Subindex)
			if !ok || mv.Storage.Get() != m.Encode() {
				t.Errorf("mapping object for %04X:%02X missing or wrong", m.Index, m.Subindex)
			}
			idx, sub, bits := DecodeMapping(m.Encode())
			if idx != m.Index || sub != m.Subindex || bits != m.Bits {
				t.Errorf("DecodeMapping(%#x) = %04X, %02X, %d", m.Encode(), idx, sub, bits)
			}
		}
	}
}

func TestBuildErrors(t *testing.T) {
	var a, b, c uint32
	var s uint16
	var x uint8
	tests := []struct {
		name string
		b    *Builder
		want error
	}{
		{
			name: "too long",
			b: NewBuilder(1).RPDO(2, 1,
				Field{Var: Uint32(&a)}, Field{Var: Uint32(&b)}, Field{Var: Uint32(&c)}),
			want: ErrMappingTooLong,
		},
		{
			name: "narrow mapping in wide storage",
			b:    NewBuilder(1).RPDO(2, 1, Field{Var: Uint16(&s), Bits: 8}),
			want: ErrWidthMismatch,
		},
		{
			name: "wide mapping in narrow storage",
			b:    NewBuilder(1).RPDO(2, 1, Field{Var: Uint8(&x), Bits: 12}),
			want: ErrWidthMismatch,
		},
		{
			name: "no fields",
			b:    NewBuilder(1).RPDO(2, 1),
			want: ErrFieldCount,
		},
		{
			name: "nil storage",
			b:    NewBuilder(1).RPDO(2, 1, Field{}),
			want: ErrNilVar,
		},
		{
			name: "storage bound to nil pointer",
			b:    NewBuilder(1).RPDO(5, 1, Field{Var: Uint16(nil)}),
			want: ErrNilVar,
		},
		{
			name: "signed storage bound to nil pointer",
			b:    NewBuilder(1).RPDO(5, 1, Field{Var: Uint16(&s)}, Field{Var: Int32(nil)}),
			want: ErrNilVar,
		},
		{
			name: "duplicate",
			b:    NewBuilder(1).RPDO(2, 1, Field{Var: Uint8(&x)}).RPDO(2, 1, Field{Var: Uint16(&s)}),
			want: ErrDuplicateCOBID,
		},
	}
	for _, test := range tests {
		if _, err := test.b.Build(); !errors.Is(err, test.want) {
			t.Errorf("%s: Build() error = %v, want %v", test.name, err, test.want)
		}
	}

	if _, err := NewBuilder(0).Build(); err == nil {
		t.Error("Build() with node 0: error = nil")
	}
	if _, err := NewBuilder(1).RPDO(2, 5, Field{Var: Uint8(&x)}).Build(); err == nil {
		t.Error("Build() with TPDO5: error = nil")
	}
}

func TestHeartbeatProducerNil(t *testing.T) {
	d, err := NewBuilder(1).HeartbeatProducer(nil).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if d.HasObject(IndexHeartbeatTime) {
		t.Error("HasObject(0x1017) = true, want no heartbeat object")
	}
	for _, e := range d.Entries() {
		_ = e.String()
	}
}

func TestPartialWidthAccepted(t *testing.T) {
	var s uint16
	var x uint8
	if _, err := NewBuilder(1).RPDO(2, 1, Field{Var: Uint16(&s), Bits: 12}, Field{Var: Uint8(&x), Bits: 4}).Build(); err != nil {
		t.Errorf("Build() error = %v", err)
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustBuild did not panic")
		}
	}()
	NewBuilder(1).RPDO(2, 1).MustBuild()
}

func TestNewDictionaryOrder(t *testing.T) {
	entries := []Entry{
		{Index: 0x1000, Type: U32, Storage: Const(U32, 0)},
		{Index: 0x1000, Type: U32, Storage: Const(U32, 0)},
	}
	if _, err := newDictionary(1, entries, nil); !errors.Is(err, ErrOrder) {
		t.Errorf("newDictionary(duplicate) error = %v, want ErrOrder", err)
	}
}
