//go:build linux

package can

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// pollInterval bounds how long a blocked call waits before rechecking ctx.
const pollInterval = 50 * time.Millisecond

type socketCAN struct {
	fd        int
	closed    chan struct{}
	closeOnce sync.Once
}

// DialSocketCAN opens a raw CAN socket bound to the named interface, such
// as "can0".
func DialSocketCAN(iface string) (Bus, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("can: interface %q: %w", iface, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("can: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can: bind %q: %w", iface, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can: set nonblocking: %w", err)
	}
	return &socketCAN{fd: fd, closed: make(chan struct{})}, nil
}

func (s *socketCAN) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = unix.Close(s.fd)
	})
	return err
}

func (s *socketCAN) Send(ctx context.Context, frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		if err := s.check(ctx); err != nil {
			return err
		}
		n, err := unix.Write(s.fd, buf)
		switch {
		case err == nil && n != len(buf):
			return errors.New("can: short write")
		case err == nil:
			return nil
		case err == unix.EAGAIN || err == unix.ENOBUFS:
			if err := s.wait(ctx, unix.POLLOUT); err != nil {
				return err
			}
		case err == unix.EINTR:
		default:
			return fmt.Errorf("can: write: %w", err)
		}
	}
}

func (s *socketCAN) Receive(ctx context.Context) (Frame, error) {
	buf := make([]byte, 16)
	for {
		if err := s.check(ctx); err != nil {
			return Frame{}, err
		}
		n, err := unix.Read(s.fd, buf)
		switch {
		case err == nil && n != len(buf):
			return Frame{}, errors.New("can: short read")
		case err == nil:
			var f Frame
			if err := f.UnmarshalBinary(buf); err != nil {
				return Frame{}, err
			}
			return f, nil
		case err == unix.EAGAIN:
			if err := s.wait(ctx, unix.POLLIN); err != nil {
				return Frame{}, err
			}
		case err == unix.EINTR:
		default:
			return Frame{}, fmt.Errorf("can: read: %w", err)
		}
	}
}

func (s *socketCAN) check(ctx context.Context) error {
	select {
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// wait polls until the socket is ready for events, pollInterval passes, ctx
// is done or the socket is closed.
func (s *socketCAN) wait(ctx context.Context, events int16) error {
	timeout := pollInterval
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return ctx.Err()
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: events}}
	if _, err := unix.Poll(fds, int(timeout/time.Millisecond)); err != nil && err != unix.EINTR {
		return fmt.Errorf("can: poll: %w", err)
	}
	return s.check(ctx)
}
