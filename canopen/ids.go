// Package canopen implements the slice of CANopen (CiA 301) a display node
// needs: a statically built object dictionary, receive-PDO unpacking into
// bound variables, NMT state handling, a heartbeat producer and an
// expedited SDO server for inspecting the dictionary.
package canopen

import "fmt"

// NodeID is a CANopen node identifier, 1..127.
type NodeID uint8

// Validate checks that the node id is in range.
func (n NodeID) Validate() error {
	if n < 1 || n > 127 {
		return fmt.Errorf("canopen: invalid node id %d (valid 1..127)", n)
	}
	return nil
}

// FunctionCode is the base of a CANopen COB-ID range.
type FunctionCode uint16

// Function codes of the predefined connection set.
const (
	FuncNMT       FunctionCode = 0x000
	FuncSYNC      FunctionCode = 0x080
	FuncEMCY      FunctionCode = 0x080 // + node id
	FuncTPDO1     FunctionCode = 0x180
	FuncRPDO1     FunctionCode = 0x200
	FuncTPDO2     FunctionCode = 0x280
	FuncRPDO2     FunctionCode = 0x300
	FuncTPDO3     FunctionCode = 0x380
	FuncRPDO3     FunctionCode = 0x400
	FuncTPDO4     FunctionCode = 0x480
	FuncRPDO4     FunctionCode = 0x500
	FuncSDOTx     FunctionCode = 0x580 // server to client
	FuncSDORx     FunctionCode = 0x600 // client to server
	FuncHeartbeat FunctionCode = 0x700
)

// COBID returns the 11-bit identifier for fc and node. NMT ignores node.
func COBID(fc FunctionCode, node NodeID) uint32 {
	if fc == FuncNMT {
		return 0
	}
	return uint32(fc) + uint32(node)
}

// TPDO returns the function code of transmit PDO n (1..4).
func TPDO(n int) (FunctionCode, error) {
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("canopen: TPDO%d out of range 1..4", n)
	}
	return FuncTPDO1 + FunctionCode(n-1)*0x100, nil
}

// ParseCOBID splits an 11-bit identifier into function code and node id.
// SYNC is reported as EMCY from node 0.
func ParseCOBID(id uint32) (FunctionCode, NodeID, error) {
	if id > 0x7FF {
		return 0, 0, fmt.Errorf("canopen: invalid 11-bit id 0x%X", id)
	}
	if id == 0 {
		return FuncNMT, 0, nil
	}
	fc := FunctionCode(id &^ 0x7F)
	node := NodeID(id & 0x7F)
	switch fc {
	case FuncEMCY, FuncTPDO1, FuncRPDO1, FuncTPDO2, FuncRPDO2, FuncTPDO3,
		FuncRPDO3, FuncTPDO4, FuncRPDO4, FuncSDOTx, FuncSDORx, FuncHeartbeat:
		return fc, node, nil
	}
	return 0, 0, fmt.Errorf("canopen: id 0x%X not in a predefined range", id)
}
