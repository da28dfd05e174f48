package can

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// LogOption selects which directions a logged bus records.
type LogOption uint8

// Log options.
const (
	LogRead LogOption = 1 << iota
	LogWrite

	LogNone LogOption = 0
	LogAll            = LogRead | LogWrite
)

type loggedBus struct {
	inner  Bus
	log    logrus.FieldLogger
	level  logrus.Level
	opts   LogOption
	filter FrameFilter
}

// NewLoggedBus wraps inner, logging frames that match filter (nil for all)
// at level. Errors are always logged at error level, except context
// cancellation and ErrClosed.
func NewLoggedBus(inner Bus, log logrus.FieldLogger, level logrus.Level, opts LogOption, filter FrameFilter) Bus {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &loggedBus{inner: inner, log: log, level: level, opts: opts, filter: filter}
}

func (l *loggedBus) fields(f Frame) logrus.Fields {
	return logrus.Fields{
		"id":    f.ID,
		"len":   f.Len,
		"frame": f.String(),
	}
}

func (l *loggedBus) Send(ctx context.Context, frame Frame) error {
	if l.opts&LogWrite != 0 && l.filter.Match(frame) {
		l.log.WithFields(l.fields(frame)).Log(l.level, "can send")
	}
	err := l.inner.Send(ctx, frame)
	if err != nil && l.opts&LogWrite != 0 && !quiet(err) {
		l.log.WithFields(l.fields(frame)).WithError(err).Error("can send failed")
	}
	return err
}

func (l *loggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := l.inner.Receive(ctx)
	if l.opts&LogRead == 0 {
		return f, err
	}
	if err != nil {
		if !quiet(err) {
			l.log.WithError(err).Error("can receive failed")
		}
		return f, err
	}
	if l.filter.Match(f) {
		l.log.WithFields(l.fields(f)).Log(l.level, "can receive")
	}
	return f, nil
}

func (l *loggedBus) Close() error {
	return l.inner.Close()
}

func quiet(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
