// Package config loads the device configuration from YAML with environment
// overrides.
package config

// Config is the whole device configuration.
type Config struct {
	Node     NodeConfig    `yaml:"node"`
	CAN      CANConfig     `yaml:"can"`
	Display  DisplayConfig `yaml:"display"`
	Mirror   MirrorConfig  `yaml:"mirror"`
	LogLevel string        `yaml:"log_level"`
}

// NodeConfig describes this node and its peers on the CAN bus.
type NodeConfig struct {
	ID              uint8       `yaml:"id"`
	FirmwareVersion string      `yaml:"firmware_version"` // semver, reported in the identity object
	Serial          uint32      `yaml:"serial"`
	HeartbeatMs     uint16      `yaml:"heartbeat_ms"` // 0 disables
	Peers           PeersConfig `yaml:"peers"`
}

// PeersConfig holds the node ids whose TPDOs the display consumes.
type PeersConfig struct {
	MotorController   uint8 `yaml:"motor_controller"`
	BatteryManagement uint8 `yaml:"battery_management"`
	ThermalManagement uint8 `yaml:"thermal_management"`
}

// CANConfig configures the bus and the receive queue.
type CANConfig struct {
	Interface      string `yaml:"interface"`
	QueueSize      int    `yaml:"queue_size"`
	QueuePolicy    string `yaml:"queue_policy"` // drop_oldest or drop_newest
	LoopIntervalMs int    `yaml:"loop_interval_ms"`
	LogFrames      bool   `yaml:"log_frames"`
}

// DisplayConfig configures the LCD and the screen layout.
type DisplayConfig struct {
	SPIPort          string `yaml:"spi_port"`
	SPIHz            int64  `yaml:"spi_hz"`
	A0Pin            string `yaml:"a0_pin"`
	CSPin            string `yaml:"cs_pin"`
	ResetPin         string `yaml:"reset_pin"`
	Contrast         uint8  `yaml:"contrast"`
	RefreshThreshold int    `yaml:"refresh_threshold"` // main loop ticks per render
	PageRollover     int    `yaml:"page_rollover"`     // renders per page, -1 never flips
	StatusPolicy     string `yaml:"status_policy"`     // hex or error_page
	SplashMs         int    `yaml:"splash_ms"`
}

// MirrorConfig configures the optional Modbus TCP telemetry mirror.
type MirrorConfig struct {
	Endpoint  string `yaml:"endpoint"` // host:port; empty disables the mirror
	UnitID    uint8  `yaml:"unit_id"`
	Address   uint16 `yaml:"address"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Default returns the configuration used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:              0x0A,
			FirmwareVersion: "1.0.0",
			HeartbeatMs:     1000,
			Peers: PeersConfig{
				MotorController:   0x01,
				BatteryManagement: 0x05,
				ThermalManagement: 0x08,
			},
		},
		CAN: CANConfig{
			Interface:      "can0",
			QueueSize:      64,
			QueuePolicy:    "drop_oldest",
			LoopIntervalMs: 1,
		},
		Display: DisplayConfig{
			SPIHz:            4000000,
			A0Pin:            "GPIO25",
			ResetPin:         "GPIO24",
			Contrast:         0x11,
			RefreshThreshold: 100,
			PageRollover:     255,
			StatusPolicy:     "hex",
			SplashMs:         1000,
		},
		Mirror: MirrorConfig{
			UnitID:    1,
			TimeoutMs: 1000,
		},
		LogLevel: "info",
	}
}
