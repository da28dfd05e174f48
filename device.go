package hudl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DrJosh9000/hudl/can"
	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/font"
	"github.com/DrJosh9000/hudl/lcd"
	"github.com/DrJosh9000/hudl/refresh"
	"github.com/DrJosh9000/hudl/screen"
	"github.com/DrJosh9000/hudl/telemetry"
)

// SplashText is drawn at double scale while the display boots.
const SplashText = "HUDL"

// Device is the heads-up display: a CANopen node whose RPDOs feed the
// telemetry state, and a screen engine that draws it.
//
// Frames are received on a separate goroutine into a bounded queue. All
// other work, including everything passed to Do, runs on the goroutine
// calling Run (or Process).
type Device struct {
	opts    Options
	bus     can.Bus
	display *lcd.ST7565
	log     logrus.FieldLogger

	state   *telemetry.State
	dict    *canopen.Dictionary
	node    *canopen.Node
	screen  *screen.Engine
	refresh *refresh.Scheduler
	queue   *can.Queue
	cmds    chan func(*Device)

	heartbeatMs uint16
	dropped     uint64
	now         func() time.Time
}

// NewDevice builds the dictionary and services of a display. The display
// is not touched until Init.
func NewDevice(bus can.Bus, display *lcd.ST7565, opts Options) (*Device, error) {
	if bus == nil || display == nil {
		return nil, errors.New("hudl: bus and display are required")
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultOptions().QueueSize
	}
	if opts.LoopInterval <= 0 {
		opts.LoopInterval = DefaultOptions().LoopInterval
	}
	d := &Device{
		opts:        opts,
		bus:         bus,
		display:     display,
		log:         opts.Log,
		refresh:     refresh.New(opts.RefreshThreshold),
		queue:       can.NewQueue(opts.QueueSize, opts.QueuePolicy),
		cmds:        make(chan func(*Device), 16),
		heartbeatMs: opts.HeartbeatMs,
		now:         time.Now,
	}
	state, fields := telemetry.New()
	dict, err := NewDictionary(opts.Node, opts.Identity, &d.heartbeatMs, opts.Peers, fields)
	if err != nil {
		return nil, fmt.Errorf("hudl: object dictionary: %w", err)
	}
	d.state = state
	d.dict = dict
	d.node = canopen.NewNode(dict, bus, opts.Log)
	d.screen = screen.New(display, state, opts.Screen)
	return d, nil
}

// State returns the telemetry written by the RPDOs.
func (d *Device) State() *telemetry.State { return d.state }

// Screen returns the screen engine.
func (d *Device) Screen() *screen.Engine { return d.screen }

// Dictionary returns the object dictionary.
func (d *Device) Dictionary() *canopen.Dictionary { return d.dict }

// Node returns the CANopen node.
func (d *Device) Node() *canopen.Node { return d.node }

// Queue returns the receive queue.
func (d *Device) Queue() *can.Queue { return d.queue }

// Init resets and clears the display, shows the splash screen, then starts
// the node.
func (d *Device) Init(ctx context.Context) error {
	d.display.Reset()
	d.display.Init()
	d.display.ClearScreen()

	bitmap, width := font.Large.Bitmap(SplashText)
	column := (lcd.Width - 2*width) / 2
	d.display.Blit(bitmap, width, font.Large.Pages*8, 2, column, 2)
	if d.opts.Splash > 0 {
		t := time.NewTimer(d.opts.Splash)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	d.display.ClearScreen()

	if err := d.node.Start(ctx, d.now()); err != nil {
		return fmt.Errorf("hudl: start node: %w", err)
	}
	d.log.WithFields(logrus.Fields{
		"node":    d.dict.Node(),
		"entries": d.dict.Len(),
		"rpdos":   len(d.dict.RPDOs()),
	}).Info("Display started")
	return nil
}

// Deliver queues a received frame if the node consumes it. It is safe to
// call from any goroutine.
func (d *Device) Deliver(f can.Frame) {
	if d.node.Filter().Match(f) {
		d.queue.Push(f)
	}
}

// Do schedules fn to run on the main loop. It reports false if the command
// buffer is full.
func (d *Device) Do(fn func(*Device)) bool {
	select {
	case d.cmds <- fn:
		return true
	default:
		return false
	}
}

// Process runs one iteration of the main loop: pending commands, queued
// frames, node services, and a screen refresh when one is due.
func (d *Device) Process(ctx context.Context) {
	for pending := true; pending; {
		select {
		case fn := <-d.cmds:
			fn(d)
		default:
			pending = false
		}
	}

	d.queue.Drain(func(f can.Frame) {
		if err := d.node.Process(ctx, f); err != nil {
			d.log.WithError(err).WithField("frame", f).Warn("Couldn't process frame")
		}
	})
	if err := d.node.Service(ctx, d.now()); err != nil {
		d.log.WithError(err).Warn("Couldn't send heartbeat")
	}
	if n := d.queue.Dropped(); n > d.dropped {
		d.log.WithField("dropped", n-d.dropped).Warn("Receive queue overflowed")
		d.dropped = n
	}

	if !d.refresh.Tick() {
		return
	}
	d.screen.Render()
	if d.opts.Publish != nil {
		d.opts.Publish(d.state.Snapshot())
	}
}

// Run initialises the display and runs the main loop until ctx is done.
// A failing receiver puts the display on the error page; the loop keeps
// running so the node can still be reset over NMT once the bus recovers.
func (d *Device) Run(ctx context.Context) error {
	if err := d.Init(ctx); err != nil {
		return err
	}

	go func() {
		err := d.queue.Fill(ctx, d.bus, d.node.Filter())
		if err == nil {
			return
		}
		d.log.WithError(err).Error("CAN receive failed")
		d.Do(func(d *Device) { d.screen.ShowError("CAN bus failure") })
	}()

	t := time.NewTicker(d.opts.LoopInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			d.Process(ctx)
		}
	}
}
