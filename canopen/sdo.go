package canopen

import (
	"encoding/binary"
	"fmt"

	"github.com/DrJosh9000/hudl/can"
)

// Command specifiers, bits 7..5 of the first SDO byte.
const (
	sdoCCSDownload = 1
	sdoCCSUpload   = 2
	sdoSCSUpload   = 2
	sdoSCSDownload = 3
	sdoCSAbort     = 4
)

// Initiate flags: e (expedited) and s (size indicated); n is in bits 3..2.
const (
	sdoExpedited     = 0x02
	sdoSizeIndicated = 0x01
)

// SDO abort codes.
const (
	AbortCommand    uint32 = 0x05040001
	AbortReadOnly   uint32 = 0x06010002
	AbortNoObject   uint32 = 0x06020000
	AbortLength     uint32 = 0x06070010
	AbortNoSubindex uint32 = 0x06090011
)

var abortText = map[uint32]string{
	AbortCommand:    "command specifier invalid or unknown",
	AbortReadOnly:   "attempt to write a read-only object",
	AbortNoObject:   "object does not exist",
	AbortLength:     "data type does not match (length)",
	AbortNoSubindex: "sub-index does not exist",
}

// SDOAbort is an SDO transfer aborted by the server or client.
type SDOAbort struct {
	Index    uint16
	Subindex uint8
	Code     uint32
}

func (e *SDOAbort) Error() string {
	if msg, ok := abortText[e.Code]; ok {
		return fmt.Sprintf("canopen: SDO abort 0x%08X at %04X:%02X: %s", e.Code, e.Index, e.Subindex, msg)
	}
	return fmt.Sprintf("canopen: SDO abort 0x%08X at %04X:%02X", e.Code, e.Index, e.Subindex)
}

func sdoFrame(id uint32, cmd byte, index uint16, sub uint8, data uint32) can.Frame {
	f := can.Frame{ID: id, Len: 8}
	f.Data[0] = cmd
	binary.LittleEndian.PutUint16(f.Data[1:3], index)
	f.Data[3] = sub
	binary.LittleEndian.PutUint32(f.Data[4:8], data)
	return f
}

// SDOUploadRequest builds a client request to read index:sub from node.
func SDOUploadRequest(node NodeID, index uint16, sub uint8) can.Frame {
	return sdoFrame(COBID(FuncSDORx, node), sdoCCSUpload<<5, index, sub, 0)
}

// SDODownloadRequest builds an expedited client write of a t-sized value.
func SDODownloadRequest(node NodeID, index uint16, sub uint8, t DataType, v uint32) can.Frame {
	n := byte(4-t.Size()) << 2
	return sdoFrame(COBID(FuncSDORx, node), sdoCCSDownload<<5|n|sdoExpedited|sdoSizeIndicated, index, sub, v)
}

// ParseSDOResponse decodes a server response. Uploads return the value;
// downloads return 0. Aborts are returned as *SDOAbort.
func ParseSDOResponse(f can.Frame) (uint32, error) {
	if fc, _, err := ParseCOBID(f.ID); err != nil || fc != FuncSDOTx || f.Len != 8 {
		return 0, fmt.Errorf("canopen: not an SDO response: %v", f)
	}
	cmd := f.Data[0]
	index := binary.LittleEndian.Uint16(f.Data[1:3])
	sub := f.Data[3]
	data := binary.LittleEndian.Uint32(f.Data[4:8])
	switch cmd >> 5 {
	case sdoCSAbort:
		return 0, &SDOAbort{Index: index, Subindex: sub, Code: data}
	case sdoSCSDownload:
		return 0, nil
	case sdoSCSUpload:
		if cmd&sdoExpedited == 0 {
			return 0, fmt.Errorf("canopen: segmented upload of %04X:%02X not supported", index, sub)
		}
		if cmd&sdoSizeIndicated != 0 {
			size := 4 - int(cmd>>2&0x3)
			data &= uint32(1<<(8*size) - 1)
		}
		return data, nil
	}
	return 0, fmt.Errorf("canopen: unknown SDO server command 0x%02X", cmd)
}

// serveSDO answers one client request from the dictionary. It returns false
// if no response is due.
func (d *Dictionary) serveSDO(f can.Frame) (can.Frame, bool) {
	tx := COBID(FuncSDOTx, d.node)
	cmd := f.Data[0]
	index := binary.LittleEndian.Uint16(f.Data[1:3])
	sub := f.Data[3]
	abort := func(code uint32) (can.Frame, bool) {
		return sdoFrame(tx, sdoCSAbort<<5, index, sub, code), true
	}

	switch cmd >> 5 {
	case sdoCSAbort:
		return can.Frame{}, false

	case sdoCCSUpload:
		e, code := d.lookup(index, sub)
		if code != 0 {
			return abort(code)
		}
		size := e.Type.Size()
		resp := byte(sdoSCSUpload<<5) | byte(4-size)<<2 | sdoExpedited | sdoSizeIndicated
		return sdoFrame(tx, resp, index, sub, e.Storage.Get()), true

	case sdoCCSDownload:
		e, code := d.lookup(index, sub)
		if code != 0 {
			return abort(code)
		}
		if e.Access == ReadOnly {
			return abort(AbortReadOnly)
		}
		if cmd&sdoExpedited == 0 {
			return abort(AbortCommand)
		}
		size := 4
		if cmd&sdoSizeIndicated != 0 {
			size = 4 - int(cmd>>2&0x3)
		}
		if size != e.Type.Size() {
			return abort(AbortLength)
		}
		v := binary.LittleEndian.Uint32(f.Data[4:8])
		e.Storage.Set(v & uint32(1<<(8*size)-1))
		return sdoFrame(tx, sdoSCSDownload<<5, index, sub, 0), true
	}
	return abort(AbortCommand)
}

func (d *Dictionary) lookup(index uint16, sub uint8) (Entry, uint32) {
	e, ok := d.Find(index, sub)
	switch {
	case ok:
		return e, 0
	case d.HasObject(index):
		return Entry{}, AbortNoSubindex
	default:
		return Entry{}, AbortNoObject
	}
}
