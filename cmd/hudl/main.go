// Command hudl runs the heads-up display on a Raspberry Pi with an ST7565
// LCD on SPI and a SocketCAN interface.
//
//	hudl [config.yaml]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/DrJosh9000/hudl"
	"github.com/DrJosh9000/hudl/can"
	"github.com/DrJosh9000/hudl/config"
	"github.com/DrJosh9000/hudl/lcd"
	"github.com/DrJosh9000/hudl/mirror"
)

func main() {
	var path string
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load(path)
	if err != nil {
		logrus.WithError(err).Fatal("Couldn't load config")
	}
	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logrus.SetLevel(level)
	log := logrus.WithField("node", cfg.Node.ID)

	if _, err := host.Init(); err != nil {
		log.WithError(err).Fatal("Couldn't initialise host drivers")
	}
	display, port, err := lcd.OpenSPI(lcd.SPIConfig{
		Port:  cfg.Display.SPIPort,
		Speed: physic.Frequency(cfg.Display.SPIHz) * physic.Hertz,
		A0:    cfg.Display.A0Pin,
		CS:    cfg.Display.CSPin,
		Reset: cfg.Display.ResetPin,
	})
	if err != nil {
		log.WithError(err).Fatal("Couldn't open display")
	}
	defer port.Close()
	display.Contrast = cfg.Display.Contrast

	bus, err := can.DialSocketCAN(cfg.CAN.Interface)
	if err != nil {
		log.WithError(err).WithField("interface", cfg.CAN.Interface).Error("Couldn't open CAN interface")
		os.Exit(1)
	}
	if cfg.CAN.LogFrames {
		bus = can.NewLoggedBus(bus, log, logrus.DebugLevel, can.LogAll, nil)
	}
	defer bus.Close()

	opts, err := hudl.OptionsFromConfig(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Mirror.Endpoint != "" {
		m, err := mirror.Dial(mirror.Config{
			Endpoint: cfg.Mirror.Endpoint,
			UnitID:   cfg.Mirror.UnitID,
			Address:  cfg.Mirror.Address,
			Timeout:  time.Duration(cfg.Mirror.TimeoutMs) * time.Millisecond,
		}, log)
		if err != nil {
			// The display is still useful without the mirror.
			log.WithError(err).Warn("Couldn't connect telemetry mirror")
		} else {
			defer m.Close()
			go m.Run(ctx)
			opts.Publish = m.Publish
		}
	}

	dev, err := hudl.NewDevice(bus, display, opts)
	if err != nil {
		log.WithError(err).Fatal("Couldn't create device")
	}
	if err := dev.Run(ctx); err != nil {
		log.WithError(err).Error("Display stopped")
		os.Exit(1)
	}
	log.Info("Shutting down")
}
