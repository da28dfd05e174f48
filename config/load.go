package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// overrides are the settings that may be replaced from the environment,
// typically by the service unit on the target.
type overrides struct {
	CANInterface   string `env:"HUDL_CAN_INTERFACE"`
	SPIPort        string `env:"HUDL_SPI_PORT"`
	LogLevel       string `env:"HUDL_LOG_LEVEL"`
	MirrorEndpoint string `env:"HUDL_MIRROR_ENDPOINT"`
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path uses defaults and
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, leaving fields the document omits unchanged.
// Unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv replaces settings with any HUDL_* environment variables that are
// set.
func ApplyEnv(cfg *Config) error {
	var o overrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.CAN.Interface, o.CANInterface)
	set(&cfg.Display.SPIPort, o.SPIPort)
	set(&cfg.LogLevel, o.LogLevel)
	set(&cfg.Mirror.Endpoint, o.MirrorEndpoint)
	return nil
}
