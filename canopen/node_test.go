package canopen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/DrJosh9000/hudl/can"
)

type sink struct{ frames []can.Frame }

func (s *sink) Send(_ context.Context, f can.Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *sink) last(t *testing.T) can.Frame {
	t.Helper()
	if len(s.frames) == 0 {
		t.Fatal("nothing sent")
	}
	return s.frames[len(s.frames)-1]
}

func newTestNode(t *testing.T, v *vars) (*Node, *sink, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	out := new(sink)
	n := NewNode(testBuilder(v).MustBuild(), out, log)
	if err := n.Start(context.Background(), time.Unix(0, 0)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return n, out, hook
}

func TestNodeStart(t *testing.T) {
	var v vars
	n, out, _ := newTestNode(t, &v)
	if n.State() != StateOperational {
		t.Errorf("State() = %v, want operational", n.State())
	}
	node, state, err := ParseHeartbeat(out.last(t))
	if err != nil || node != 0x0A || state != StateBootup {
		t.Errorf("boot-up = %v, %v, %v, want node 10 boot-up", node, state, err)
	}
}

func TestNodeRPDOGatedByNMT(t *testing.T) {
	var v vars
	n, _, _ := newTestNode(t, &v)
	ctx := context.Background()
	volts := func(x uint16) can.Frame { return can.MustFrame(0x185, byte(x), byte(x>>8)) }

	steps := []struct {
		frame can.Frame
		want  uint16
	}{
		{volts(700), 700},
		{NMTFrame(NMTStop, 0x0A), 700},
		{volts(710), 700},
		{NMTFrame(NMTEnterPreOperational, 0), 700},
		{volts(720), 700},
		{NMTFrame(NMTStart, 0x0B), 700}, // other node
		{volts(725), 700},
		{NMTFrame(NMTStart, 0), 700},
		{volts(730), 730},
	}
	for i, step := range steps {
		if err := n.Process(ctx, step.frame); err != nil {
			t.Fatalf("step %d: Process(%v) error = %v", i, step.frame, err)
		}
		if v.voltage != step.want {
			t.Errorf("step %d: voltage = %d, want %d (state %v)", i, v.voltage, step.want, n.State())
		}
	}
}

func TestNodeIgnoresShortAndUnknown(t *testing.T) {
	var v vars
	n, out, hook := newTestNode(t, &v)
	sent := len(out.frames)
	ctx := context.Background()
	for _, f := range []can.Frame{
		can.MustFrame(0x185, 0x01),
		can.MustFrame(0x186, 0x01, 0x02),
		{ID: 0x185, Extended: true, Len: 2, Data: [8]byte{1, 2}},
	} {
		if err := n.Process(ctx, f); err != nil {
			t.Errorf("Process(%v) error = %v", f, err)
		}
	}
	if v.voltage != 0 {
		t.Errorf("voltage = %d, want 0", v.voltage)
	}
	if len(out.frames) != sent {
		t.Errorf("node answered an ignored frame")
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Errorf("short RPDO not logged as a warning: %v", e)
	}
}

func TestNodeSDO(t *testing.T) {
	var v vars
	n, out, _ := newTestNode(t, &v)
	ctx := context.Background()
	v.voltage = 725

	tests := []struct {
		req   can.Frame
		want  uint32
		abort uint32
	}{
		{SDOUploadRequest(0x0A, 0x1018, 1), 0x2A, 0},
		{SDOUploadRequest(0x0A, 0x2100, 1), 725, 0},
		{SDOUploadRequest(0x0A, 0x1400, 2), 0xFE, 0},
		{SDOUploadRequest(0x0A, 0x1018, 9), 0, AbortNoSubindex},
		{SDOUploadRequest(0x0A, 0x3000, 0), 0, AbortNoObject},
		{SDODownloadRequest(0x0A, 0x1018, 1, U32, 1), 0, AbortReadOnly},
		{SDODownloadRequest(0x0A, 0x1017, 0, U32, 1), 0, AbortLength},
		{SDODownloadRequest(0x0A, 0x1017, 0, U16, 250), 0, 0},
		{SDOUploadRequest(0x0A, 0x1017, 0), 250, 0},
	}
	for _, test := range tests {
		if err := n.Process(ctx, test.req); err != nil {
			t.Fatalf("Process(%v) error = %v", test.req, err)
		}
		resp := out.last(t)
		if resp.ID != 0x58A {
			t.Errorf("response id = %#x, want 0x58a", resp.ID)
		}
		got, err := ParseSDOResponse(resp)
		var ab *SDOAbort
		switch {
		case test.abort != 0:
			if !errors.As(err, &ab) || ab.Code != test.abort {
				t.Errorf("%v: error = %v, want abort %#x", test.req, err, test.abort)
			}
		case err != nil:
			t.Errorf("%v: error = %v", test.req, err)
		case got != test.want:
			t.Errorf("%v: value = %#x, want %#x", test.req, got, test.want)
		}
	}
	if v.beat != 250 {
		t.Errorf("heartbeat time = %d, want 250", v.beat)
	}
}

func TestNodeHeartbeat(t *testing.T) {
	var v vars
	v.beat = 100
	n, out, _ := newTestNode(t, &v)
	ctx := context.Background()
	t0 := time.Unix(0, 0)

	beats := 0
	for ms := 0; ms <= 1000; ms += 10 {
		before := len(out.frames)
		if err := n.Service(ctx, t0.Add(time.Duration(ms)*time.Millisecond)); err != nil {
			t.Fatalf("Service() error = %v", err)
		}
		if len(out.frames) > before {
			beats++
			_, state, err := ParseHeartbeat(out.last(t))
			if err != nil || state != StateOperational {
				t.Errorf("heartbeat state = %v, %v", state, err)
			}
		}
	}
	if beats != 10 {
		t.Errorf("sent %d heartbeats in 1s at 100ms, want 10", beats)
	}

	v.beat = 0
	before := len(out.frames)
	n.Service(ctx, t0.Add(time.Hour))
	if len(out.frames) != before {
		t.Error("heartbeat sent with producer time 0")
	}
}

func TestNodeReset(t *testing.T) {
	var v vars
	n, out, _ := newTestNode(t, &v)
	ctx := context.Background()
	n.Process(ctx, NMTFrame(NMTStop, 0))
	if err := n.Process(ctx, NMTFrame(NMTResetCommunication, 0x0A)); err != nil {
		t.Fatalf("Process(reset) error = %v", err)
	}
	if _, state, _ := ParseHeartbeat(out.last(t)); state != StateBootup {
		t.Errorf("after reset sent state %v, want boot-up", state)
	}
	if n.State() != StateOperational {
		t.Errorf("State() after reset = %v, want operational", n.State())
	}
}

func TestNodeFilter(t *testing.T) {
	var v vars
	n, _, _ := newTestNode(t, &v)
	f := n.Filter()
	for id, want := range map[uint32]bool{
		0x000: true, 0x60A: true, 0x185: true, 0x188: true, 0x181: true, 0x281: true,
		0x60B: false, 0x182: false, 0x70A: false, 0x58A: false,
	} {
		if got := f.Match(can.MustFrame(id)); got != want {
			t.Errorf("Filter().Match(%#x) = %t, want %t", id, got, want)
		}
	}
}
