package canopen

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DrJosh9000/hudl/can"
)

// Node runs the CANopen services of a device around its Dictionary. It is
// not safe for concurrent use; drive it from a single loop.
type Node struct {
	dict  *Dictionary
	out   can.Sender
	log   logrus.FieldLogger
	state NMTState
	rpdos map[uint32]RPDO

	heartbeat Var
	lastBeat  time.Time
}

// NewNode returns a node in the boot-up state. Responses and heartbeats are
// sent on out. A nil log uses the logrus standard logger.
func NewNode(dict *Dictionary, out can.Sender, log logrus.FieldLogger) *Node {
	if log == nil {
		log = logrus.StandardLogger()
	}
	n := &Node{
		dict:  dict,
		out:   out,
		log:   log.WithField("node", dict.Node()),
		state: StateBootup,
		rpdos: make(map[uint32]RPDO),
	}
	for _, r := range dict.RPDOs() {
		n.rpdos[r.COBID] = r
	}
	if e, ok := dict.Find(IndexHeartbeatTime, 0); ok {
		n.heartbeat = e.Storage
	}
	return n
}

// State returns the NMT state.
func (n *Node) State() NMTState { return n.state }

// Start sends the boot-up message and enters Operational. The node starts
// itself rather than waiting for an NMT master.
func (n *Node) Start(ctx context.Context, now time.Time) error {
	n.state = StateBootup
	if err := n.out.Send(ctx, HeartbeatFrame(n.dict.Node(), StateBootup)); err != nil {
		return err
	}
	n.lastBeat = now
	n.setState(StateOperational)
	return nil
}

func (n *Node) setState(s NMTState) {
	if s != n.state {
		n.log.WithFields(logrus.Fields{"from": n.state, "to": s}).Info("NMT state change")
	}
	n.state = s
}

// Filter matches the frames the node consumes: NMT commands, requests to
// its SDO server and its RPDOs.
func (n *Node) Filter() can.FrameFilter {
	ids := []uint32{COBID(FuncNMT, 0), COBID(FuncSDORx, n.dict.Node())}
	for id := range n.rpdos {
		ids = append(ids, id)
	}
	return can.And(can.StandardOnly(), can.DataOnly(), can.ByIDs(ids...))
}

// Process handles one received frame. Frames the node does not consume are
// ignored, as are RPDOs outside Operational and RPDOs shorter than their
// mapping.
func (n *Node) Process(ctx context.Context, f can.Frame) error {
	if f.Extended || f.RTR {
		return nil
	}
	switch f.ID {
	case COBID(FuncNMT, 0):
		return n.handleNMT(ctx, f)
	case COBID(FuncSDORx, n.dict.Node()):
		if n.state == StateStopped || f.Len != 8 {
			return nil
		}
		resp, ok := n.dict.serveSDO(f)
		if !ok {
			return nil
		}
		return n.out.Send(ctx, resp)
	}

	r, ok := n.rpdos[f.ID]
	if !ok || n.state != StateOperational {
		return nil
	}
	if err := r.Apply(f); err != nil {
		if errors.Is(err, ErrShortFrame) {
			n.log.WithField("frame", f).Warn("ignoring short RPDO")
			return nil
		}
		return err
	}
	return nil
}

func (n *Node) handleNMT(ctx context.Context, f can.Frame) error {
	cmd, target, err := parseNMT(f)
	if err != nil {
		n.log.WithError(err).Warn("ignoring malformed NMT command")
		return nil
	}
	if target != 0 && target != n.dict.Node() {
		return nil
	}
	switch cmd {
	case NMTStart:
		n.setState(StateOperational)
	case NMTStop:
		n.setState(StateStopped)
	case NMTEnterPreOperational:
		n.setState(StatePreOperational)
	case NMTResetNode, NMTResetCommunication:
		n.log.WithField("command", cmd).Info("NMT reset")
		return n.Start(ctx, time.Time{})
	default:
		n.log.WithField("command", cmd).Warn("ignoring unknown NMT command")
	}
	return nil
}

// Service produces a heartbeat when the producer time has elapsed.
func (n *Node) Service(ctx context.Context, now time.Time) error {
	if n.heartbeat == nil || n.state == StateBootup {
		return nil
	}
	period := time.Duration(n.heartbeat.Get()) * time.Millisecond
	if period == 0 {
		return nil
	}
	if !n.lastBeat.IsZero() && now.Sub(n.lastBeat) < period {
		return nil
	}
	n.lastBeat = now
	return n.out.Send(ctx, HeartbeatFrame(n.dict.Node(), n.state))
}
