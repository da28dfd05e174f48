package lcd

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// SPI is a Transport over a periph.io SPI connection. A0 is the register
// select line (low for commands, high for data). CS is optional; leave it nil
// when the SPI port drives chip select itself.
type SPI struct {
	Conn spi.Conn
	A0   gpio.PinOut
	CS   gpio.PinOut
}

// WriteCommand sends b to the command register.
func (s *SPI) WriteCommand(b uint8) {
	s.write(gpio.Low, b)
}

// WriteData sends b to display RAM.
func (s *SPI) WriteData(b uint8) {
	s.write(gpio.High, b)
}

func (s *SPI) write(rs gpio.Level, b uint8) {
	if s.CS != nil {
		s.CS.Out(gpio.Low)
	}
	s.A0.Out(rs)
	s.Conn.Tx([]byte{b}, nil)
	if s.CS != nil {
		s.CS.Out(gpio.High)
	}
}

// SPIConfig names the port and pins for OpenSPI. Pin names are looked up in
// gpioreg; CS and Reset may be empty.
type SPIConfig struct {
	Port  string // "" for the first available port
	Speed physic.Frequency
	A0    string
	CS    string
	Reset string
}

// OpenSPI opens the SPI port in mode 0 and returns a controller wired to it.
// host.Init must have been called.
func OpenSPI(c SPIConfig) (*ST7565, spi.PortCloser, error) {
	a0 := gpioreg.ByName(c.A0)
	if a0 == nil {
		return nil, nil, fmt.Errorf("lcd: unknown A0 pin %q", c.A0)
	}
	var cs, rst gpio.PinOut
	if c.CS != "" {
		p := gpioreg.ByName(c.CS)
		if p == nil {
			return nil, nil, fmt.Errorf("lcd: unknown CS pin %q", c.CS)
		}
		p.Out(gpio.High)
		cs = p
	}
	if c.Reset != "" {
		p := gpioreg.ByName(c.Reset)
		if p == nil {
			return nil, nil, fmt.Errorf("lcd: unknown reset pin %q", c.Reset)
		}
		rst = p
	}

	port, err := spireg.Open(c.Port)
	if err != nil {
		return nil, nil, fmt.Errorf("lcd: open SPI port: %w", err)
	}
	conn, err := port.Connect(c.Speed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("lcd: connect SPI: %w", err)
	}
	a0.Out(gpio.Low)

	return &ST7565{
		T:   &SPI{Conn: conn, A0: a0, CS: cs},
		RST: rst,
	}, port, nil
}
