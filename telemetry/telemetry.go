// Package telemetry holds the vehicle values the display shows. The values
// are written only through the Fields handed to the object dictionary and
// read through State.
package telemetry

// Motor controller status words.
const (
	StatusStop uint16 = 0x21
	StatusGo   uint16 = 0x27
)

// ThermistorCount is the number of temperature channels.
const ThermistorCount = 4

// State is the current telemetry. The zero value is all zeroes.
type State struct {
	totalVoltage uint16                  // 0.1 V
	thermTemps   [ThermistorCount]uint16 // 0.01 °C
	statusWord   uint16
	torque       int16
	position     int32
	velocity     int32
}

// Fields points at the storage of a State, for binding to the dictionary.
type Fields struct {
	TotalVoltage *uint16
	ThermTemps   [ThermistorCount]*uint16
	StatusWord   *uint16
	Torque       *int16
	Position     *int32
	Velocity     *int32
}

// New returns a zeroed State and the Fields that write it.
func New() (*State, Fields) {
	s := new(State)
	f := Fields{
		TotalVoltage: &s.totalVoltage,
		StatusWord:   &s.statusWord,
		Torque:       &s.torque,
		Position:     &s.position,
		Velocity:     &s.velocity,
	}
	for i := range s.thermTemps {
		f.ThermTemps[i] = &s.thermTemps[i]
	}
	return s, f
}

// TotalVoltage returns the pack voltage in tenths of a volt.
func (s *State) TotalVoltage() uint16 { return s.totalVoltage }

// MaxTemp returns the hottest temperature.
func (s *State) MaxTemp() uint16 {
	m := s.thermTemps[0]
	for _, t := range s.thermTemps[1:] {
		if t > m {
			m = t
		}
	}
	return m
}

// MinTemp returns the coolest temperature.
func (s *State) MinTemp() uint16 {
	m := s.thermTemps[0]
	for _, t := range s.thermTemps[1:] {
		if t < m {
			m = t
		}
	}
	return m
}

// StatusWord returns the motor controller status word.
func (s *State) StatusWord() uint16 { return s.statusWord }

// Torque returns the actual torque.
func (s *State) Torque() int16 { return s.torque }

// Position returns the actual position.
func (s *State) Position() int32 { return s.position }

// Velocity returns the actual velocity in RPM.
func (s *State) Velocity() int32 { return s.velocity }

// Snapshot is a copy of the telemetry at one instant.
type Snapshot struct {
	TotalVoltage uint16
	ThermTemps   [ThermistorCount]uint16
	StatusWord   uint16
	Torque       int16
	Position     int32
	Velocity     int32
}

// Snapshot copies the current values.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		TotalVoltage: s.totalVoltage,
		ThermTemps:   s.thermTemps,
		StatusWord:   s.statusWord,
		Torque:       s.torque,
		Position:     s.position,
		Velocity:     s.velocity,
	}
}
