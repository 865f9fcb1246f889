package compute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aquavit/Brahma-sub001/internal/driver"
)

// QueueState is the lifecycle state of a Queue.
type QueueState int

const (
	// QueueOpen is a queue that has not run a group yet.
	QueueOpen QueueState = iota

	// QueueDraining is a queue waiting for a submitted group to complete.
	QueueDraining

	// QueueIdle is a queue whose last group completed or failed.
	QueueIdle

	// QueueDisposed is a closed queue.
	QueueDisposed
)

func (s QueueState) String() string {
	switch s {
	case QueueOpen:
		return "open"
	case QueueDraining:
		return "draining"
	case QueueIdle:
		return "idle"
	case QueueDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Queue executes commands in order against its provider's context.
// It is not safe for concurrent use.
type Queue struct {
	id       string
	provider *Provider
	native   driver.Queue
	clock    *Clock
	logger   *slog.Logger

	state QueueState
	lost  bool
}

// NewQueue creates a command queue on p's context.
func (p *Provider) NewQueue() (*Queue, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if err := p.makeCurrent(); err != nil {
		return nil, err
	}
	native, err := p.ctx.NewQueue()
	if err != nil {
		return nil, p.driverError(err, "create queue")
	}
	q := &Queue{
		id:       p.ids.Generate(),
		provider: p,
		native:   native,
		clock:    NewClock(),
		state:    QueueOpen,
	}
	q.logger = p.logger.With("queue", q.id)
	return q, nil
}

// ID returns the queue id.
func (q *Queue) ID() string { return q.id }

// State returns the lifecycle state.
func (q *Queue) State() QueueState { return q.state }

// Groups returns the number of groups submitted so far.
func (q *Queue) Groups() int64 { return q.clock.Current() }

// Add submits commands as one group and blocks until the device reports
// completion. Commands run in the given order. A failing command stops the
// group and is reported as a *CommandError; read destinations of commands
// that completed before it are filled.
//
// ctx is consulted before submission only; an in-flight group is not
// cancelled.
func (q *Queue) Add(ctx context.Context, commands ...Command) error {
	if err := q.checkUsable(); err != nil {
		return err
	}
	if len(commands) == 0 {
		return nil
	}

	ops := make([]driver.Op, len(commands))
	done := make([]func(), len(commands))
	for i, cmd := range commands {
		if cmd == nil {
			return &CommandError{Index: i, Err: NewArgumentError("nil command")}
		}
		op, fill, err := cmd.lower(q.provider)
		if err != nil {
			return &CommandError{Index: i, Err: asError(err)}
		}
		ops[i] = op
		done[i] = fill
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := q.provider.makeCurrent(); err != nil {
		return err
	}

	seq := q.clock.Next()
	q.state = QueueDraining
	q.logger.Debug("group submitted", "seq", seq, "commands", len(commands))
	err := q.native.EnqueueAndWait(ctx, ops)
	q.state = QueueIdle

	completed := len(commands)
	var failure error
	if err != nil {
		var ee *driver.EnqueueError
		switch {
		case errors.As(err, &ee):
			completed = ee.Index
			rt := q.provider.driverError(ee.Cause, "%s", commands[ee.Index])
			failure = &CommandError{Index: ee.Index, Err: rt}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			completed = 0
			failure = err
		default:
			completed = 0
			failure = q.provider.driverError(err, "submit group %d", seq)
		}
	}
	for _, fill := range done[:completed] {
		if fill != nil {
			fill()
		}
	}

	if failure != nil {
		if q.provider.lost {
			q.lost = true
		}
		q.logger.Warn("group failed", "seq", seq, "completed", completed, "error", failure)
		return failure
	}
	q.logger.Debug("group completed", "seq", seq)
	return nil
}

// Close releases the native queue. Buffers, kernels and the provider stay
// usable. Close is idempotent.
func (q *Queue) Close() error {
	if q.state == QueueDisposed {
		return nil
	}
	q.state = QueueDisposed
	if err := q.native.Release(); err != nil {
		return newError(ErrCodeNative, err, "release queue %s", q.id)
	}
	q.logger.Debug("queue closed", "groups", q.clock.Current())
	return nil
}

func (q *Queue) checkUsable() error {
	if q.state == QueueDisposed {
		return NewDisposedError("queue")
	}
	if q.lost {
		return newError(ErrCodeDeviceContextLost, driver.ErrContextLost, "queue %s", q.id)
	}
	if err := q.provider.checkOpen(); err != nil {
		if IsContextLost(err) {
			q.lost = true
		}
		return err
	}
	return nil
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(ErrCodeNative, err, "command")
}
