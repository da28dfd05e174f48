package hudl

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/config"
	"github.com/DrJosh9000/hudl/telemetry"
)

func TestNewDictionary(t *testing.T) {
	Convey("The display dictionary", t, func() {
		_, fields := telemetry.New()
		hb := uint16(1000)
		o := DefaultOptions()
		dict, err := NewDictionary(o.Node, o.Identity, &hb, o.Peers, fields)
		So(err, ShouldBeNil)

		Convey("Has four RPDOs bound to the peers' TPDOs", func() {
			rpdos := dict.RPDOs()
			So(rpdos, ShouldHaveLength, 4)
			var ids []uint32
			for _, r := range rpdos {
				ids = append(ids, r.COBID)
			}
			So(ids, ShouldResemble, []uint32{0x185, 0x188, 0x181, 0x281})
			So(rpdos[0].Bits(), ShouldEqual, 16)
			So(rpdos[1].Bits(), ShouldEqual, 64)
			So(rpdos[2].Bits(), ShouldEqual, 64)
			So(rpdos[3].Bits(), ShouldEqual, 32)
		})

		Convey("Carries the identity and communication objects", func() {
			for _, idx := range []uint16{
				canopen.IndexDeviceType,
				canopen.IndexIdentity,
				canopen.IndexSDOServer,
				canopen.IndexHeartbeatTime,
				canopen.IndexRPDOComm + 3,
				canopen.IndexRPDOMapping + 3,
				canopen.IndexRPDOStorage + 3,
			} {
				So(dict.HasObject(idx), ShouldBeTrue)
			}
			e, ok := dict.Find(canopen.IndexIdentity, 2)
			So(ok, ShouldBeTrue)
			So(e.Storage.Get(), ShouldEqual, ProductCode)
		})

		Convey("Ends with the end marker", func() {
			entries := dict.Entries()
			So(entries[len(entries)-1].IsEnd(), ShouldBeTrue)
		})

		Convey("The heartbeat entry writes through to the caller's variable", func() {
			e, ok := dict.Find(canopen.IndexHeartbeatTime, 0)
			So(ok, ShouldBeTrue)
			e.Storage.Set(250)
			So(hb, ShouldEqual, 250)
		})
	})

	Convey("Peers sharing a node id are rejected", t, func() {
		_, fields := telemetry.New()
		var hb uint16
		o := DefaultOptions()
		o.Peers.ThermalManagement = o.Peers.BatteryManagement
		_, err := NewDictionary(o.Node, o.Identity, &hb, o.Peers, fields)
		So(err, ShouldNotBeNil)
	})
}

func TestRevisionFromVersion(t *testing.T) {
	Convey("Firmware versions pack into the revision number", t, func() {
		rev, err := RevisionFromVersion("1.0.0")
		So(err, ShouldBeNil)
		So(rev, ShouldEqual, 0x00010000)

		rev, err = RevisionFromVersion("2.3.9")
		So(err, ShouldBeNil)
		So(rev, ShouldEqual, 0x00020003)

		_, err = RevisionFromVersion("banana")
		So(err, ShouldNotBeNil)

		_, err = RevisionFromVersion("70000.0.0")
		So(err, ShouldNotBeNil)
	})
}

func TestOptionsFromConfig(t *testing.T) {
	Convey("Options follow the configuration", t, func() {
		cfg := config.Default()
		cfg.Node.FirmwareVersion = "1.2.0"
		cfg.Node.Serial = 42
		cfg.CAN.QueuePolicy = "drop_newest"
		cfg.Display.StatusPolicy = "error_page"
		cfg.Display.PageRollover = 10

		o, err := OptionsFromConfig(cfg, nil)
		So(err, ShouldBeNil)
		So(o.Node, ShouldEqual, canopen.NodeID(cfg.Node.ID))
		So(o.Identity.Revision, ShouldEqual, 0x00010002)
		So(o.Identity.Serial, ShouldEqual, 42)
		So(o.Identity.ProductCode, ShouldEqual, ProductCode)
		So(o.Peers, ShouldResemble, DefaultPeers)
		So(o.Screen.Rollover, ShouldEqual, 10)
		So(o.RefreshThreshold, ShouldEqual, cfg.Display.RefreshThreshold)

		Convey("Unknown policies are errors", func() {
			cfg.CAN.QueuePolicy = "drop_everything"
			_, err := OptionsFromConfig(cfg, nil)
			So(err, ShouldNotBeNil)
		})
	})
}
