// Command hudlsim is an interactive simulator of the display. It runs the
// device on an in-memory CAN bus with an emulated LCD, and plays the part of
// the other nodes on the bus.
package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/sirupsen/logrus"

	"github.com/DrJosh9000/hudl"
	"github.com/DrJosh9000/hudl/can"
	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/config"
	"github.com/DrJosh9000/hudl/lcd"
	"github.com/DrJosh9000/hudl/screen"
)

// lockedFB lets the shell read the framebuffer while the device draws.
type lockedFB struct {
	mu sync.Mutex
	fb lcd.Framebuffer
}

func (l *lockedFB) WriteCommand(b uint8) {
	l.mu.Lock()
	l.fb.WriteCommand(b)
	l.mu.Unlock()
}

func (l *lockedFB) WriteData(b uint8) {
	l.mu.Lock()
	l.fb.WriteData(b)
	l.mu.Unlock()
}

func (l *lockedFB) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fb.String()
}

func (l *lockedFB) Image() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fb.Image()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// sim is the rest of the vehicle.
type sim struct {
	bus   can.Bus
	node  canopen.NodeID
	rpdos map[string]canopen.RPDO
	sdo   chan can.Frame
	log   logrus.FieldLogger

	motion [3]uint32 // last status word, torque and position sent
}

// listen consumes everything the display sends, so its transmissions never
// back up the loopback bus.
func (s *sim) listen(ctx context.Context) {
	for {
		f, err := s.bus.Receive(ctx)
		if err != nil {
			return
		}
		switch f.ID {
		case canopen.COBID(canopen.FuncSDOTx, s.node):
			select {
			case s.sdo <- f:
			default:
			}
		case canopen.COBID(canopen.FuncHeartbeat, s.node):
			if _, state, err := canopen.ParseHeartbeat(f); err == nil {
				s.log.WithField("state", state).Debug("Heartbeat")
			}
		}
	}
}

func (s *sim) send(f can.Frame) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.bus.Send(ctx, f)
}

func (s *sim) pdo(name string, values ...uint32) error {
	f, err := s.rpdos[name].Pack(values...)
	if err != nil {
		return err
	}
	if err := s.send(f); err != nil {
		return err
	}
	if name == "motion" {
		copy(s.motion[:], values)
	}
	return nil
}

func parseInts(args []string, n int) ([]uint32, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	out := make([]uint32, n)
	for i, a := range args {
		v, err := strconv.ParseInt(a, 0, 64)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// pdoCmd returns a command that sends the named PDO with n integer values.
func (s *sim) pdoCmd(name, help, pdo string, n int) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			vals, err := parseInts(c.Args, n)
			if err != nil {
				c.Println(err)
				return
			}
			if err := s.pdo(pdo, vals...); err != nil {
				c.Println(err)
			}
		},
	}
}

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

	opts, err := hudl.OptionsFromConfig(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Invalid config")
	}
	opts.Splash = 0

	loop := can.NewLoopbackBus()
	defer loop.Close()
	var devBus can.Bus = loop.Open()
	if cfg.CAN.LogFrames {
		devBus = can.NewLoggedBus(devBus, log, logrus.InfoLevel, can.LogAll, nil)
	}

	fb := new(lockedFB)
	dev, err := hudl.NewDevice(devBus, &lcd.ST7565{T: fb, Contrast: cfg.Display.Contrast}, opts)
	if err != nil {
		log.WithError(err).Fatal("Couldn't create device")
	}

	// The peers' view of the display's RPDOs, keyed by what they carry.
	rpdos := dev.Dictionary().RPDOs()
	s := &sim{
		bus:  loop.Open(),
		node: opts.Node,
		rpdos: map[string]canopen.RPDO{
			"voltage":  rpdos[0],
			"temps":    rpdos[1],
			"motion":   rpdos[2],
			"velocity": rpdos[3],
		},
		sdo: make(chan can.Frame, 1),
		log: log,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.listen(ctx)
	go func() {
		if err := dev.Run(ctx); err != nil {
			log.WithError(err).Error("Device stopped")
		}
	}()

	shell := ishell.New()
	shell.Println("HUDL simulator")
	shell.AddCmd(s.pdoCmd("voltage", "voltage <decivolts>", "voltage", 1))
	shell.AddCmd(s.pdoCmd("temps", "temps <t1> <t2> <t3> <t4> (centidegrees)", "temps", 4))
	shell.AddCmd(s.pdoCmd("motion", "motion <status word> <torque> <position>", "motion", 3))
	shell.AddCmd(s.pdoCmd("velocity", "velocity <rpm>", "velocity", 1))
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "status go|stop|<word>",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("status go|stop|<word>")
				return
			}
			var word uint32
			switch strings.ToLower(c.Args[0]) {
			case "go":
				word = 0x27
			case "stop":
				word = 0x21
			default:
				v, err := strconv.ParseUint(c.Args[0], 0, 16)
				if err != nil {
					c.Println(err)
					return
				}
				word = uint32(v)
			}
			if err := s.pdo("motion", word, s.motion[1], s.motion[2]); err != nil {
				c.Println(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "show",
		Help: "show the display",
		Func: func(c *ishell.Context) {
			c.Printf("%s", fb.String())
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "png",
		Help: "png <file>: save the display as an image",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("png <file>")
				return
			}
			if err := writePNG(c.Args[0], fb.Image()); err != nil {
				c.Println(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "page",
		Help: "page 1|2",
		Func: func(c *ishell.Context) {
			p := screen.PageOne
			if len(c.Args) == 1 && c.Args[0] == "2" {
				p = screen.PageTwo
			}
			dev.Do(func(d *hudl.Device) { d.Screen().SetPage(p) })
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "error",
		Help: "error <message>",
		Func: func(c *ishell.Context) {
			msg := strings.Join(c.Args, " ")
			dev.Do(func(d *hudl.Device) { d.Screen().ShowError(msg) })
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "clear",
		Help: "clear the error page",
		Func: func(c *ishell.Context) {
			dev.Do(func(d *hudl.Device) { d.Screen().ClearError() })
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "nmt",
		Help: "nmt start|stop|preop|reset",
		Func: func(c *ishell.Context) {
			cmds := map[string]canopen.NMTCommand{
				"start": canopen.NMTStart,
				"stop":  canopen.NMTStop,
				"preop": canopen.NMTEnterPreOperational,
				"reset": canopen.NMTResetNode,
			}
			if len(c.Args) != 1 {
				c.Println("nmt start|stop|preop|reset")
				return
			}
			cmd, ok := cmds[c.Args[0]]
			if !ok {
				c.Println("unknown NMT command", c.Args[0])
				return
			}
			if err := s.send(canopen.NMTFrame(cmd, s.node)); err != nil {
				c.Println(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "sdo",
		Help: "sdo <index> <subindex>",
		Func: func(c *ishell.Context) {
			vals, err := parseInts(c.Args, 2)
			if err != nil {
				c.Println(err)
				return
			}
			if err := s.send(canopen.SDOUploadRequest(s.node, uint16(vals[0]), uint8(vals[1]))); err != nil {
				c.Println(err)
				return
			}
			select {
			case f := <-s.sdo:
				v, err := canopen.ParseSDOResponse(f)
				if err != nil {
					c.Println(err)
					return
				}
				c.Printf("0x%04X:%d = 0x%X (%d)\n", vals[0], vals[1], v, v)
			case <-time.After(time.Second):
				c.Println("SDO timeout")
			}
		},
	})
	shell.Start()
}
