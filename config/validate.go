package config

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/sirupsen/logrus"
)

// Validate checks the configuration. It does not modify cfg.
func Validate(cfg *Config) error {
	n := cfg.Node
	if err := nodeID("node.id", n.ID); err != nil {
		return err
	}
	if _, err := semver.NewVersion(n.FirmwareVersion); err != nil {
		return fmt.Errorf("node.firmware_version %q: %w", n.FirmwareVersion, err)
	}

	peers := []struct {
		name string
		id   uint8
	}{
		{"motor_controller", n.Peers.MotorController},
		{"battery_management", n.Peers.BatteryManagement},
		{"thermal_management", n.Peers.ThermalManagement},
	}
	seen := map[uint8]string{n.ID: "node.id"}
	for _, p := range peers {
		name := "node.peers." + p.name
		if err := nodeID(name, p.id); err != nil {
			return err
		}
		if other, ok := seen[p.id]; ok {
			return fmt.Errorf("%s: node id %d already used by %s", name, p.id, other)
		}
		seen[p.id] = name
	}

	c := cfg.CAN
	if c.Interface == "" {
		return fmt.Errorf("can.interface must be set")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("can.queue_size must be at least 1, got %d", c.QueueSize)
	}
	switch c.QueuePolicy {
	case "drop_oldest", "drop_newest":
	default:
		return fmt.Errorf("can.queue_policy must be drop_oldest or drop_newest, got %q", c.QueuePolicy)
	}
	if c.LoopIntervalMs < 1 {
		return fmt.Errorf("can.loop_interval_ms must be at least 1, got %d", c.LoopIntervalMs)
	}

	d := cfg.Display
	if d.A0Pin == "" {
		return fmt.Errorf("display.a0_pin must be set")
	}
	if d.SPIHz <= 0 {
		return fmt.Errorf("display.spi_hz must be positive, got %d", d.SPIHz)
	}
	if d.Contrast > 0x3F {
		return fmt.Errorf("display.contrast must be at most 63, got %d", d.Contrast)
	}
	if d.RefreshThreshold < 1 {
		return fmt.Errorf("display.refresh_threshold must be at least 1, got %d", d.RefreshThreshold)
	}
	if d.PageRollover < -1 || d.PageRollover == 0 {
		return fmt.Errorf("display.page_rollover must be positive or -1, got %d", d.PageRollover)
	}
	switch d.StatusPolicy {
	case "hex", "error_page":
	default:
		return fmt.Errorf("display.status_policy must be hex or error_page, got %q", d.StatusPolicy)
	}
	if d.SplashMs < 0 {
		return fmt.Errorf("display.splash_ms must not be negative, got %d", d.SplashMs)
	}

	m := cfg.Mirror
	if m.Endpoint != "" {
		if m.TimeoutMs <= 0 {
			return fmt.Errorf("mirror.timeout_ms must be positive, got %d", m.TimeoutMs)
		}
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func nodeID(name string, id uint8) error {
	if id < 1 || id > 127 {
		return fmt.Errorf("%s must be 1..127, got %d", name, id)
	}
	return nil
}
