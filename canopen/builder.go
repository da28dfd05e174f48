package canopen

import "fmt"

// MaxRPDOs is the number of RPDO communication objects CiA 301 provides.
const MaxRPDOs = 512

// Identity holds the constant identification objects.
type Identity struct {
	DeviceType  uint32
	VendorID    uint32
	ProductCode uint32
	Revision    uint32
	Serial      uint32
}

// Field binds storage to a mapped PDO field. A zero Bits maps the full width
// of the storage type.
type Field struct {
	Var  Var
	Bits int
}

type rpdoSpec struct {
	peer   NodeID
	tpdo   int
	fields []Field
}

// Builder assembles a Dictionary. Methods record configuration; Build checks
// it and generates the entries.
type Builder struct {
	node      NodeID
	identity  Identity
	heartbeat Var
	sdo       bool
	rpdos     []rpdoSpec
}

// NewBuilder starts a dictionary for node.
func NewBuilder(node NodeID) *Builder {
	return &Builder{node: node}
}

// Identity sets the device type and identity objects.
func (b *Builder) Identity(id Identity) *Builder {
	b.identity = id
	return b
}

// SDOServer adds the default SDO server parameters.
func (b *Builder) SDOServer() *Builder {
	b.sdo = true
	return b
}

// HeartbeatProducer adds the producer heartbeat time, in milliseconds,
// backed by ms. Zero disables the heartbeat; a nil ms leaves the object out.
func (b *Builder) HeartbeatProducer(ms *uint16) *Builder {
	b.heartbeat = nil
	if ms != nil {
		b.heartbeat = Uint16(ms)
	}
	return b
}

// RPDO adds a receive PDO consuming transmit PDO tpdo (1..4) of peer. Fields
// are packed in order from the least significant bit of the payload.
func (b *Builder) RPDO(peer NodeID, tpdo int, fields ...Field) *Builder {
	b.rpdos = append(b.rpdos, rpdoSpec{peer: peer, tpdo: tpdo, fields: fields})
	return b
}

// Build checks the configuration and returns the dictionary.
func (b *Builder) Build() (*Dictionary, error) {
	if err := b.node.Validate(); err != nil {
		return nil, err
	}
	if len(b.rpdos) > MaxRPDOs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyRPDOs, len(b.rpdos), MaxRPDOs)
	}

	var entries []Entry
	add := func(index uint16, sub uint8, access AccessMode, v Var) {
		entries = append(entries, Entry{
			Index:    index,
			Subindex: sub,
			Type:     v.Type(),
			Access:   access,
			Storage:  v,
		})
	}

	id := b.identity
	add(IndexDeviceType, 0, ReadOnly, Const(U32, id.DeviceType))
	add(IndexErrorRegister, 0, ReadOnly, Const(U8, 0))
	if b.heartbeat != nil {
		add(IndexHeartbeatTime, 0, ReadWrite, b.heartbeat)
	}
	add(IndexIdentity, 0, ReadOnly, Const(U8, 4))
	add(IndexIdentity, 1, ReadOnly, Const(U32, id.VendorID))
	add(IndexIdentity, 2, ReadOnly, Const(U32, id.ProductCode))
	add(IndexIdentity, 3, ReadOnly, Const(U32, id.Revision))
	add(IndexIdentity, 4, ReadOnly, Const(U32, id.Serial))
	if b.sdo {
		add(IndexSDOServer, 0, ReadOnly, Const(U8, 2))
		add(IndexSDOServer, 1, ReadOnly, Const(U32, COBID(FuncSDORx, b.node)))
		add(IndexSDOServer, 2, ReadOnly, Const(U32, COBID(FuncSDOTx, b.node)))
	}

	rpdos := make([]RPDO, 0, len(b.rpdos))
	seen := make(map[uint32]int)
	for n, spec := range b.rpdos {
		r, err := spec.resolve(n)
		if err != nil {
			return nil, fmt.Errorf("canopen: RPDO%d: %w", n, err)
		}
		if prev, ok := seen[r.COBID]; ok {
			return nil, fmt.Errorf("%w: RPDO%d and RPDO%d both use 0x%03X", ErrDuplicateCOBID, prev, n, r.COBID)
		}
		seen[r.COBID] = n
		rpdos = append(rpdos, r)
	}

	// Communication, mapping and storage objects each occupy their own index
	// range, so emit them range by range to keep the entries ordered.
	for _, r := range rpdos {
		idx := IndexRPDOComm + uint16(r.Number)
		add(idx, 0, ReadOnly, Const(U8, 2))
		add(idx, 1, ReadOnly, Const(U32, r.COBID))
		add(idx, 2, ReadOnly, Const(U8, uint32(r.Trigger)))
	}
	for _, r := range rpdos {
		idx := IndexRPDOMapping + uint16(r.Number)
		add(idx, 0, ReadOnly, Const(U8, uint32(len(r.Mappings))))
		for k, m := range r.Mappings {
			add(idx, uint8(k+1), ReadOnly, Const(U32, m.Encode()))
		}
	}
	for _, r := range rpdos {
		idx := IndexRPDOStorage + uint16(r.Number)
		add(idx, 0, ReadOnly, Const(U8, uint32(len(r.Mappings))))
		for k, m := range r.Mappings {
			add(idx, uint8(k+1), ProcessReadWrite, m.Var)
		}
	}

	return newDictionary(b.node, entries, rpdos)
}

// MustBuild is like Build but panics on error. It is for dictionaries fixed
// at compile time.
func (b *Builder) MustBuild() *Dictionary {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

func (s rpdoSpec) resolve(n int) (RPDO, error) {
	if err := s.peer.Validate(); err != nil {
		return RPDO{}, err
	}
	fc, err := TPDO(s.tpdo)
	if err != nil {
		return RPDO{}, err
	}
	if len(s.fields) < 1 || len(s.fields) > 8 {
		return RPDO{}, fmt.Errorf("%w: got %d", ErrFieldCount, len(s.fields))
	}
	r := RPDO{
		Number:  n,
		Peer:    s.peer,
		COBID:   COBID(fc, s.peer),
		Trigger: TransmissionEvent,
	}
	total := 0
	for k, f := range s.fields {
		if !Bound(f.Var) {
			return RPDO{}, fmt.Errorf("field %d: %w", k+1, ErrNilVar)
		}
		bits := f.Bits
		if bits == 0 {
			bits = f.Var.Type().Bits()
		}
		if bits < 1 || (bits+7)/8 != f.Var.Type().Size() {
			return RPDO{}, fmt.Errorf("field %d: %w: %d bits in %v", k+1, ErrWidthMismatch, bits, f.Var.Type())
		}
		total += bits
		r.Mappings = append(r.Mappings, Mapping{
			Index:    IndexRPDOStorage + uint16(n),
			Subindex: uint8(k + 1),
			Bits:     bits,
			Var:      f.Var,
		})
	}
	if total > 64 {
		return RPDO{}, fmt.Errorf("%w: %d bits", ErrMappingTooLong, total)
	}
	return r, nil
}
