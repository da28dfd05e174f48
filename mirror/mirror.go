// Package mirror copies telemetry snapshots into Modbus TCP holding
// registers, so a logger or dashboard on the vehicle network can follow what
// the display shows.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"

	"github.com/DrJosh9000/hudl/telemetry"
)

// Register layout, relative to Config.Address. 32-bit values are high word
// first.
const (
	RegVoltage    = 0
	RegTemps      = 1 // four registers
	RegStatus     = 5
	RegTorque     = 6
	RegPositionHi = 7
	RegPositionLo = 8
	RegVelocityHi = 9
	RegVelocityLo = 10
	RegSequence   = 11

	NumRegisters = 12
)

// Encode lays a snapshot out as registers. seq is incremented by the
// publisher on every write so readers can spot stale data.
func Encode(s telemetry.Snapshot, seq uint16) []uint16 {
	regs := make([]uint16, NumRegisters)
	regs[RegVoltage] = s.TotalVoltage
	for i, t := range s.ThermTemps {
		regs[RegTemps+i] = t
	}
	regs[RegStatus] = s.StatusWord
	regs[RegTorque] = uint16(s.Torque)
	regs[RegPositionHi] = uint16(uint32(s.Position) >> 16)
	regs[RegPositionLo] = uint16(s.Position)
	regs[RegVelocityHi] = uint16(uint32(s.Velocity) >> 16)
	regs[RegVelocityLo] = uint16(s.Velocity)
	regs[RegSequence] = seq
	return regs
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}

// registerWriter is the part of modbus.Client the mirror uses.
type registerWriter interface {
	WriteMultipleRegisters(address, quantity uint16, value []byte) ([]byte, error)
}

// Config says where to write.
type Config struct {
	Endpoint string // host:port
	UnitID   uint8
	Address  uint16
	Timeout  time.Duration
}

// Mirror publishes snapshots from a goroutine of its own, so a slow or
// absent Modbus server never holds up the caller. Only the latest snapshot
// is kept.
type Mirror struct {
	cfg     Config
	handler *modbus.TCPClientHandler
	client  registerWriter
	log     logrus.FieldLogger
	snaps   chan telemetry.Snapshot
	seq     uint16
}

// Dial connects to the Modbus server. The handler reconnects on later
// writes if the connection drops.
func Dial(cfg Config, log logrus.FieldLogger) (*Mirror, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("mirror: endpoint required")
	}
	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("mirror: connect %s: %w", cfg.Endpoint, err)
	}
	m := newMirror(cfg, modbus.NewClient(h), log)
	m.handler = h
	return m, nil
}

func newMirror(cfg Config, client registerWriter, log logrus.FieldLogger) *Mirror {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Mirror{
		cfg:    cfg,
		client: client,
		log:    log.WithField("endpoint", cfg.Endpoint),
		snaps:  make(chan telemetry.Snapshot, 1),
	}
}

// Publish hands s to the writer goroutine without blocking. A snapshot that
// has not been written yet is replaced.
func (m *Mirror) Publish(s telemetry.Snapshot) {
	for {
		select {
		case m.snaps <- s:
			return
		default:
		}
		select {
		case <-m.snaps:
		default:
		}
	}
}

// Run writes published snapshots until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-m.snaps:
			if err := m.write(s); err != nil {
				m.log.WithError(err).Warn("mirror write failed")
			}
		}
	}
}

func (m *Mirror) write(s telemetry.Snapshot) error {
	m.seq++
	regs := Encode(s, m.seq)
	_, err := m.client.WriteMultipleRegisters(m.cfg.Address, uint16(len(regs)), packRegisters(regs))
	return err
}

// Close closes the connection.
func (m *Mirror) Close() error {
	if m.handler == nil {
		return nil
	}
	return m.handler.Close()
}
