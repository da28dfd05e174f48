package can

import (
	"context"
	"errors"
)

// Bus sends and receives CAN frames. Implementations are safe for concurrent
// use.
type Bus interface {
	// Send transmits a frame, blocking until it is queued or ctx is done.
	Send(ctx context.Context, frame Frame) error

	// Receive blocks until a frame arrives or ctx is done.
	Receive(ctx context.Context) (Frame, error)

	// Close releases the bus. Blocked and later calls return ErrClosed.
	Close() error
}

// Sender is the transmit half of a Bus.
type Sender interface {
	Send(ctx context.Context, frame Frame) error
}

// ErrClosed is returned by a closed bus.
var ErrClosed = errors.New("can: closed")
