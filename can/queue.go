package can

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Policy decides what a full Queue does with a new frame.
type Policy int

// Overflow policies.
const (
	// DropOldest overwrites the oldest queued frame, keeping the freshest
	// telemetry.
	DropOldest Policy = iota
	// DropNewest discards the incoming frame.
	DropNewest
)

func (p Policy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy parses the names returned by Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "drop_oldest", "":
		return DropOldest, nil
	case "drop_newest":
		return DropNewest, nil
	}
	return 0, fmt.Errorf("can: unknown queue policy %q", s)
}

// Queue is a bounded FIFO of frames between a producer goroutine and the
// main loop.
type Queue struct {
	mu      sync.Mutex
	buf     []Frame
	head, n int
	policy  Policy
	dropped uint64
}

// NewQueue returns a queue holding up to size frames (at least 1).
func NewQueue(size int, policy Policy) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{buf: make([]Frame, size), policy: policy}
}

// Push appends f. It reports false if a frame was dropped to make room or f
// itself was dropped.
func (q *Queue) Push(f Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == len(q.buf) {
		q.dropped++
		if q.policy == DropNewest {
			return false
		}
		q.buf[q.head] = f
		q.head = (q.head + 1) % len(q.buf)
		return false
	}
	q.buf[(q.head+q.n)%len(q.buf)] = f
	q.n++
	return true
}

// Pop removes the oldest frame.
func (q *Queue) Pop() (Frame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return Frame{}, false
	}
	f := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.n--
	return f, true
}

// Drain pops every queued frame into fn, oldest first. Frames pushed while
// draining are left for the next call.
func (q *Queue) Drain(fn func(Frame)) int {
	q.mu.Lock()
	frames := make([]Frame, q.n)
	for i := range frames {
		frames[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head, q.n = 0, 0
	q.mu.Unlock()

	for _, f := range frames {
		fn(f)
	}
	return len(frames)
}

// Len returns the number of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// Dropped returns the number of frames lost to overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Fill receives from bus into q until ctx is done or the bus is closed,
// keeping only frames accepted by filter. It returns nil on cancellation or
// close.
func (q *Queue) Fill(ctx context.Context, bus Bus, filter FrameFilter) error {
	for {
		f, err := bus.Receive(ctx)
		if err != nil {
			if quiet(err) || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidLen) {
				continue
			}
			return err
		}
		if filter.Match(f) {
			q.Push(f)
		}
	}
}
