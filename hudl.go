// Package hudl is the firmware logic of the heads-up display: it receives
// vehicle telemetry as CANopen RPDOs and renders it on an ST7565 LCD.
package hudl // import "github.com/DrJosh9000/hudl"

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver"
	"github.com/sirupsen/logrus"

	"github.com/DrJosh9000/hudl/can"
	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/config"
	"github.com/DrJosh9000/hudl/screen"
	"github.com/DrJosh9000/hudl/telemetry"
)

// Identity object values.
const (
	DeviceType  uint32 = 0          // no CiA device profile
	VendorID    uint32 = 0          // no CiA vendor id assigned
	ProductCode uint32 = 0x48554C44 // "HUDL"
)

// Options configures a Device.
type Options struct {
	Node        canopen.NodeID
	Peers       Peers
	Identity    canopen.Identity
	HeartbeatMs uint16

	// RefreshThreshold is the number of loop iterations per render.
	RefreshThreshold int
	Screen           screen.Config

	QueueSize    int
	QueuePolicy  can.Policy
	LoopInterval time.Duration
	Splash       time.Duration

	Log logrus.FieldLogger

	// Publish, if set, receives a snapshot after every render. It is called
	// from the main loop and must not block.
	Publish func(telemetry.Snapshot)
}

// DefaultOptions returns the options of a stock display.
func DefaultOptions() Options {
	return Options{
		Node:  0x0A,
		Peers: DefaultPeers,
		Identity: canopen.Identity{
			DeviceType:  DeviceType,
			VendorID:    VendorID,
			ProductCode: ProductCode,
			Revision:    1 << 16,
		},
		HeartbeatMs:      1000,
		RefreshThreshold: 100,
		QueueSize:        64,
		QueuePolicy:      can.DropOldest,
		LoopInterval:     time.Millisecond,
	}
}

// RevisionFromVersion packs a semantic version into an identity revision
// number: major in the high word, minor in the low word.
func RevisionFromVersion(version string) (uint32, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return 0, fmt.Errorf("hudl: firmware version %q: %w", version, err)
	}
	if v.Major() > 0xFFFF || v.Minor() > 0xFFFF {
		return 0, fmt.Errorf("hudl: firmware version %q does not fit a revision number", version)
	}
	return uint32(v.Major())<<16 | uint32(v.Minor()), nil
}

// OptionsFromConfig converts a validated configuration.
func OptionsFromConfig(cfg *config.Config, log logrus.FieldLogger) (Options, error) {
	rev, err := RevisionFromVersion(cfg.Node.FirmwareVersion)
	if err != nil {
		return Options{}, err
	}
	policy, err := can.ParsePolicy(cfg.CAN.QueuePolicy)
	if err != nil {
		return Options{}, err
	}
	status, err := screen.ParseStatusPolicy(cfg.Display.StatusPolicy)
	if err != nil {
		return Options{}, err
	}

	o := DefaultOptions()
	o.Node = canopen.NodeID(cfg.Node.ID)
	o.Peers = Peers{
		MotorController:   canopen.NodeID(cfg.Node.Peers.MotorController),
		BatteryManagement: canopen.NodeID(cfg.Node.Peers.BatteryManagement),
		ThermalManagement: canopen.NodeID(cfg.Node.Peers.ThermalManagement),
	}
	o.Identity.Revision = rev
	o.Identity.Serial = cfg.Node.Serial
	o.HeartbeatMs = cfg.Node.HeartbeatMs
	o.RefreshThreshold = cfg.Display.RefreshThreshold
	o.Screen = screen.Config{
		Rollover: cfg.Display.PageRollover,
		Policy:   status,
	}
	o.QueueSize = cfg.CAN.QueueSize
	o.QueuePolicy = policy
	o.LoopInterval = time.Duration(cfg.CAN.LoopIntervalMs) * time.Millisecond
	o.Splash = time.Duration(cfg.Display.SplashMs) * time.Millisecond
	o.Log = log
	return o, nil
}
