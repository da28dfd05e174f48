package canopen

import (
	"fmt"

	"github.com/DrJosh9000/hudl/can"
)

// NMTCommand is an NMT command specifier.
type NMTCommand uint8

// NMT commands.
const (
	NMTStart               NMTCommand = 0x01
	NMTStop                NMTCommand = 0x02
	NMTEnterPreOperational NMTCommand = 0x80
	NMTResetNode           NMTCommand = 0x81
	NMTResetCommunication  NMTCommand = 0x82
)

// NMTState is a node state as reported in heartbeats.
type NMTState uint8

// NMT states.
const (
	StateBootup         NMTState = 0x00
	StateStopped        NMTState = 0x04
	StateOperational    NMTState = 0x05
	StatePreOperational NMTState = 0x7F
)

func (s NMTState) String() string {
	switch s {
	case StateBootup:
		return "boot-up"
	case StateStopped:
		return "stopped"
	case StateOperational:
		return "operational"
	case StatePreOperational:
		return "pre-operational"
	}
	return fmt.Sprintf("NMTState(%#x)", uint8(s))
}

// NMTFrame builds an NMT command for node, or for all nodes if node is 0.
func NMTFrame(cmd NMTCommand, node NodeID) can.Frame {
	return can.MustFrame(COBID(FuncNMT, 0), byte(cmd), byte(node))
}

func parseNMT(f can.Frame) (NMTCommand, NodeID, error) {
	if f.ID != COBID(FuncNMT, 0) || f.Len < 2 {
		return 0, 0, fmt.Errorf("canopen: not an NMT command: %v", f)
	}
	return NMTCommand(f.Data[0]), NodeID(f.Data[1]), nil
}

// HeartbeatFrame builds the error control frame node sends in state.
func HeartbeatFrame(node NodeID, state NMTState) can.Frame {
	return can.MustFrame(COBID(FuncHeartbeat, node), byte(state))
}

// ParseHeartbeat decodes an error control frame.
func ParseHeartbeat(f can.Frame) (NodeID, NMTState, error) {
	fc, node, err := ParseCOBID(f.ID)
	if err != nil {
		return 0, 0, err
	}
	if fc != FuncHeartbeat || f.Len < 1 {
		return 0, 0, fmt.Errorf("canopen: not a heartbeat: %v", f)
	}
	return node, NMTState(f.Data[0]), nil
}
