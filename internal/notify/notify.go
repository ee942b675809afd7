// Package notify provides sv.Notifier implementations.
package notify

import (
	"context"
	"sync/atomic"

	"sharevault/internal/model"
	"sharevault/internal/sv"
)

// Nop drops every event.
type Nop = sv.NopNotifier

// Channel delivers events to a buffered channel without ever blocking the
// store. Events that do not fit are dropped and counted.
type Channel struct {
	ch      chan sv.Event
	dropped atomic.Int64
}

// NewChannel creates a Channel notifier with the given buffer size.
func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan sv.Event, size)}
}

func (c *Channel) Notify(_ context.Context, event sv.Event) {
	select {
	case c.ch <- event:
	default:
		c.dropped.Add(1)
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan sv.Event { return c.ch }

// Dropped returns how many events were discarded because the buffer was full.
func (c *Channel) Dropped() int64 { return c.dropped.Load() }

// Log writes one structured log line per event.
type Log struct {
	logger sv.Logger
}

func NewLog(logger sv.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, event sv.Event) {
	args := []any{"op", event.Op, "id", event.ObjectID, "identity", event.Identity}
	if event.Grantee != "" {
		args = append(args, "grantee", event.Grantee)
	}
	if event.Succeeded() {
		l.logger.Info("operation", args...)
		return
	}
	args = append(args, "kind", event.Kind(), "error", event.Err)
	l.logger.Warn("operation failed", args...)
}

// EventRecorder persists events.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *model.Event) error
}

// Audit persists every event to the database history. Recording failures
// are logged and otherwise ignored; an audit write never fails an operation.
type Audit struct {
	recorder EventRecorder
	logger   sv.Logger
}

func NewAudit(recorder EventRecorder, logger sv.Logger) *Audit {
	if logger == nil {
		logger = sv.NewNopLogger()
	}
	return &Audit{recorder: recorder, logger: logger}
}

func (a *Audit) Notify(ctx context.Context, event sv.Event) {
	if err := a.recorder.RecordEvent(ctx, ToModel(event)); err != nil {
		a.logger.Warn("failed to record event", "op", event.Op, "id", event.ObjectID, "error", err)
	}
}

// Outcome values stored in model.Event.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ToModel converts a store event into its persisted form.
func ToModel(event sv.Event) *model.Event {
	m := &model.Event{
		ObjectID:  event.ObjectID,
		Kind:      string(event.Op),
		Identity:  event.Identity,
		Outcome:   OutcomeSuccess,
		ErrorKind: string(event.Kind()),
		Message:   event.Message(),
		At:        event.At,
	}
	if !event.Succeeded() {
		m.Outcome = OutcomeFailure
	}
	if event.Grantee != "" && m.Message == "" {
		m.Message = "granted to " + event.Grantee
	}
	return m
}

// Multi fans an event out to several notifiers in order.
type Multi []sv.Notifier

func (m Multi) Notify(ctx context.Context, event sv.Event) {
	for _, n := range m {
		n.Notify(ctx, event)
	}
}
