package canopen

import "fmt"

// DataType is the width of a dictionary value.
type DataType uint8

// Supported data types.
const (
	U8 DataType = iota + 1
	U16
	U32
)

// Size returns the width in bytes.
func (t DataType) Size() int {
	switch t {
	case U8:
		return 1
	case U16:
		return 2
	case U32:
		return 4
	}
	return 0
}

// Bits returns the width in bits.
func (t DataType) Bits() int { return t.Size() * 8 }

func (t DataType) String() string {
	switch t {
	case U8:
		return "U8"
	case U16:
		return "U16"
	case U32:
		return "U32"
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// AccessMode says who may write an entry.
type AccessMode uint8

// Access modes.
const (
	// ReadOnly entries are constants of the node configuration.
	ReadOnly AccessMode = iota
	// ReadWrite entries accept SDO downloads.
	ReadWrite
	// ProcessReadWrite entries are PDO-mappable process data.
	ProcessReadWrite
)

func (a AccessMode) String() string {
	switch a {
	case ReadOnly:
		return "ro"
	case ReadWrite:
		return "rw"
	case ProcessReadWrite:
		return "rwp"
	}
	return fmt.Sprintf("AccessMode(%d)", uint8(a))
}

// Var is the storage behind a dictionary entry. Values travel as uint32;
// signed variables reinterpret the low bits as two's complement.
type Var interface {
	Type() DataType
	Get() uint32
	Set(v uint32)
}

type u8Var struct{ p *uint8 }

func (v u8Var) Type() DataType { return U8 }
func (v u8Var) Get() uint32    { return uint32(*v.p) }
func (v u8Var) Set(x uint32)   { *v.p = uint8(x) }
func (v u8Var) bound() bool    { return v.p != nil }

type u16Var struct{ p *uint16 }

func (v u16Var) Type() DataType { return U16 }
func (v u16Var) Get() uint32    { return uint32(*v.p) }
func (v u16Var) Set(x uint32)   { *v.p = uint16(x) }
func (v u16Var) bound() bool    { return v.p != nil }

type u32Var struct{ p *uint32 }

func (v u32Var) Type() DataType { return U32 }
func (v u32Var) Get() uint32    { return *v.p }
func (v u32Var) Set(x uint32)   { *v.p = x }
func (v u32Var) bound() bool    { return v.p != nil }

type i16Var struct{ p *int16 }

func (v i16Var) Type() DataType { return U16 }
func (v i16Var) Get() uint32    { return uint32(uint16(*v.p)) }
func (v i16Var) Set(x uint32)   { *v.p = int16(uint16(x)) }
func (v i16Var) bound() bool    { return v.p != nil }

type i32Var struct{ p *int32 }

func (v i32Var) Type() DataType { return U32 }
func (v i32Var) Get() uint32    { return uint32(*v.p) }
func (v i32Var) Set(x uint32)   { *v.p = int32(x) }
func (v i32Var) bound() bool    { return v.p != nil }

type constVar struct {
	t DataType
	v uint32
}

func (c constVar) Type() DataType { return c.t }
func (c constVar) Get() uint32    { return c.v }
func (c constVar) Set(uint32)     {}
func (c constVar) bound() bool    { return true }

// Bound reports whether v has storage behind it. Variables bound to a nil
// pointer are not.
func Bound(v Var) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(interface{ bound() bool }); ok {
		return b.bound()
	}
	return true
}

// Uint8 binds an 8-bit variable.
func Uint8(p *uint8) Var { return u8Var{p} }

// Uint16 binds a 16-bit variable.
func Uint16(p *uint16) Var { return u16Var{p} }

// Uint32 binds a 32-bit variable.
func Uint32(p *uint32) Var { return u32Var{p} }

// Int16 binds a signed 16-bit variable.
func Int16(p *int16) Var { return i16Var{p} }

// Int32 binds a signed 32-bit variable.
func Int32(p *int32) Var { return i32Var{p} }

// Const is a read-only value of type t.
func Const(t DataType, v uint32) Var { return constVar{t, v} }
