// Package refresh divides a fast loop down to the display refresh rate.
package refresh

// Scheduler fires once every threshold ticks.
type Scheduler struct {
	threshold int
	count     int
}

// New returns a scheduler that fires on every threshold-th tick. Thresholds
// below 1 fire on every tick.
func New(threshold int) *Scheduler {
	if threshold < 1 {
		threshold = 1
	}
	return &Scheduler{threshold: threshold}
}

// Tick advances the counter and reports whether a refresh is due. When the
// counter reaches the threshold it resets to zero.
func (s *Scheduler) Tick() bool {
	s.count++
	if s.count < s.threshold {
		return false
	}
	s.count = 0
	return true
}

// Count returns the ticks since the last refresh.
func (s *Scheduler) Count() int { return s.count }

// Threshold returns the number of ticks per refresh.
func (s *Scheduler) Threshold() int { return s.threshold }
