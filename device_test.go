package hudl

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/DrJosh9000/hudl/can"
	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/lcd"
	"github.com/DrJosh9000/hudl/screen"
	"github.com/DrJosh9000/hudl/telemetry"
)

func receive(bus can.Bus) (can.Frame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return bus.Receive(ctx)
}

func testOptions() Options {
	log, _ := logtest.NewNullLogger()
	o := DefaultOptions()
	o.RefreshThreshold = 1
	o.Screen.Rollover = -1
	o.Log = log
	return o
}

// reference renders state onto a fresh framebuffer without a device.
func reference(set func(telemetry.Fields)) *lcd.Framebuffer {
	fb := new(lcd.Framebuffer)
	state, fields := telemetry.New()
	set(fields)
	screen.New(&lcd.ST7565{T: fb}, state, screen.Config{Rollover: -1}).Render()
	return fb
}

func TestDevice(t *testing.T) {
	Convey("Given a started device on a loopback bus", t, func() {
		ctx := context.Background()
		bus := can.NewLoopbackBus()
		defer bus.Close()
		peer := bus.Open()
		fb := new(lcd.Framebuffer)

		var published []telemetry.Snapshot
		opts := testOptions()
		opts.Publish = func(s telemetry.Snapshot) { published = append(published, s) }

		dev, err := NewDevice(bus.Open(), &lcd.ST7565{T: fb}, opts)
		So(err, ShouldBeNil)
		start := time.Unix(100, 0)
		dev.now = func() time.Time { return start }
		So(dev.Init(ctx), ShouldBeNil)

		Convey("It announces itself and goes operational", func() {
			f, err := receive(peer)
			So(err, ShouldBeNil)
			node, state, err := canopen.ParseHeartbeat(f)
			So(err, ShouldBeNil)
			So(node, ShouldEqual, canopen.NodeID(0x0A))
			So(state, ShouldEqual, canopen.StateBootup)
			So(dev.Node().State(), ShouldEqual, canopen.StateOperational)
			So(fb.On, ShouldBeTrue)
		})

		Convey("A battery voltage RPDO reaches the screen", func() {
			dev.Deliver(can.MustFrame(0x185, 0xD5, 0x02))
			dev.Process(ctx)

			So(dev.State().TotalVoltage(), ShouldEqual, 725)
			want := reference(func(f telemetry.Fields) { *f.TotalVoltage = 725 })
			So(fb.RAM, ShouldResemble, want.RAM)

			So(published, ShouldHaveLength, 1)
			So(published[0].TotalVoltage, ShouldEqual, 725)
		})

		Convey("Thermistor temperatures report their maximum", func() {
			dev.Deliver(can.MustFrame(0x188, 0xD0, 0x07, 0x5A, 0x0A, 0xD0, 0x07, 0x00, 0x07))
			dev.Process(ctx)

			So(dev.State().MaxTemp(), ShouldEqual, 2650)
			So(dev.State().MinTemp(), ShouldEqual, 1792)
			So(screen.FormatTemp(dev.State().MaxTemp()), ShouldEqual, "26.50 C")
		})

		Convey("Motor controller PDOs fill status, torque, position and velocity", func() {
			dev.Deliver(can.MustFrame(0x181, 0x27, 0x00, 0xF6, 0xFF, 0x10, 0x00, 0x00, 0x00))
			dev.Deliver(can.MustFrame(0x281, 0xE8, 0x03, 0x00, 0x00))
			dev.Process(ctx)

			s := dev.State().Snapshot()
			So(s.StatusWord, ShouldEqual, telemetry.StatusGo)
			So(s.Torque, ShouldEqual, -10)
			So(s.Position, ShouldEqual, 16)
			So(s.Velocity, ShouldEqual, 1000)
		})

		Convey("Frames the node does not consume are not queued", func() {
			dev.Deliver(can.MustFrame(0x123, 0x01))
			dev.Deliver(can.MustFrame(0x186, 0x01, 0x02))
			So(dev.Queue().Len(), ShouldEqual, 0)
		})

		Convey("NMT stop freezes the telemetry until start", func() {
			dev.Deliver(canopen.NMTFrame(canopen.NMTStop, 0x0A))
			dev.Deliver(can.MustFrame(0x185, 0xD5, 0x02))
			dev.Process(ctx)
			So(dev.Node().State(), ShouldEqual, canopen.StateStopped)
			So(dev.State().TotalVoltage(), ShouldEqual, 0)

			dev.Deliver(canopen.NMTFrame(canopen.NMTStart, 0))
			dev.Deliver(can.MustFrame(0x185, 0xD5, 0x02))
			dev.Process(ctx)
			So(dev.State().TotalVoltage(), ShouldEqual, 725)
		})

		Convey("The SDO server answers identity reads", func() {
			_, err := receive(peer) // boot-up
			So(err, ShouldBeNil)

			dev.Deliver(canopen.SDOUploadRequest(0x0A, canopen.IndexIdentity, 2))
			dev.Process(ctx)
			f, err := receive(peer)
			So(err, ShouldBeNil)
			So(f.ID, ShouldEqual, 0x58A)
			v, err := canopen.ParseSDOResponse(f)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, ProductCode)
		})

		Convey("The heartbeat period can be changed over SDO", func() {
			_, err := receive(peer) // boot-up
			So(err, ShouldBeNil)

			dev.Deliver(canopen.SDODownloadRequest(0x0A, canopen.IndexHeartbeatTime, 0, canopen.U16, 50))
			dev.Process(ctx)
			_, err = receive(peer) // download response
			So(err, ShouldBeNil)

			start = start.Add(60 * time.Millisecond)
			dev.Process(ctx)
			f, err := receive(peer)
			So(err, ShouldBeNil)
			_, state, err := canopen.ParseHeartbeat(f)
			So(err, ShouldBeNil)
			So(state, ShouldEqual, canopen.StateOperational)
		})

		Convey("Commands run on the next iteration", func() {
			ok := dev.Do(func(d *Device) { d.Screen().ShowError("CAN bus failure") })
			So(ok, ShouldBeTrue)
			So(dev.Screen().Page(), ShouldNotEqual, screen.ErrorPage)

			dev.Process(ctx)
			So(dev.Screen().Page(), ShouldEqual, screen.ErrorPage)
			So(dev.Screen().Message(), ShouldEqual, "CAN bus failure")
		})
	})
}

func TestDeviceRun(t *testing.T) {
	Convey("Run consumes frames from the bus until cancelled", t, func() {
		bus := can.NewLoopbackBus()
		defer bus.Close()
		peer := bus.Open()

		snaps := make(chan telemetry.Snapshot, 16)
		opts := testOptions()
		opts.Publish = func(s telemetry.Snapshot) {
			select {
			case snaps <- s:
			default:
			}
		}
		dev, err := NewDevice(bus.Open(), &lcd.ST7565{T: new(lcd.Framebuffer)}, opts)
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- dev.Run(ctx) }()

		So(peer.Send(ctx, can.MustFrame(0x185, 0xD5, 0x02)), ShouldBeNil)

		timeout := time.After(5 * time.Second)
		var got uint16
	wait:
		for {
			select {
			case s := <-snaps:
				if got = s.TotalVoltage; got == 725 {
					break wait
				}
			case <-timeout:
				break wait
			}
		}
		So(got, ShouldEqual, 725)

		cancel()
		So(<-done, ShouldBeNil)
	})
}

func TestNewDeviceRequiresBusAndDisplay(t *testing.T) {
	Convey("NewDevice rejects missing hardware", t, func() {
		_, err := NewDevice(nil, &lcd.ST7565{T: new(lcd.Recorder)}, testOptions())
		So(err, ShouldNotBeNil)
	})
}
