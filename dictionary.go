package hudl

import (
	"github.com/DrJosh9000/hudl/canopen"
	"github.com/DrJosh9000/hudl/telemetry"
)

// Peers are the nodes whose TPDOs the display consumes.
type Peers struct {
	MotorController   canopen.NodeID
	BatteryManagement canopen.NodeID
	ThermalManagement canopen.NodeID
}

// DefaultPeers are the node ids of the vehicle's controllers.
var DefaultPeers = Peers{
	MotorController:   0x01,
	BatteryManagement: 0x05,
	ThermalManagement: 0x08,
}

// NewDictionary builds the display's object dictionary, binding the RPDOs to
// the telemetry fields:
//
//	RPDO0  BMS TPDO1  total voltage (16)
//	RPDO1  TMS TPDO1  thermistor temperatures 1-4 (4 x 16)
//	RPDO2  MC TPDO1   status word (16), torque (16), position (32)
//	RPDO3  MC TPDO2   velocity (32)
func NewDictionary(node canopen.NodeID, id canopen.Identity, heartbeatMs *uint16, peers Peers, f telemetry.Fields) (*canopen.Dictionary, error) {
	temps := make([]canopen.Field, len(f.ThermTemps))
	for i, p := range f.ThermTemps {
		temps[i] = canopen.Field{Var: canopen.Uint16(p)}
	}
	return canopen.NewBuilder(node).
		Identity(id).
		SDOServer().
		HeartbeatProducer(heartbeatMs).
		RPDO(peers.BatteryManagement, 1,
			canopen.Field{Var: canopen.Uint16(f.TotalVoltage)},
		).
		RPDO(peers.ThermalManagement, 1, temps...).
		RPDO(peers.MotorController, 1,
			canopen.Field{Var: canopen.Uint16(f.StatusWord)},
			canopen.Field{Var: canopen.Int16(f.Torque)},
			canopen.Field{Var: canopen.Int32(f.Position)},
		).
		RPDO(peers.MotorController, 2,
			canopen.Field{Var: canopen.Int32(f.Velocity)},
		).
		Build()
}
