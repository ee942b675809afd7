package sv

import (
	"context"
	"time"
)

// Operation names a store operation in emitted events.
type Operation string

const (
	OpPut               Operation = "put"
	OpGet               Operation = "get"
	OpStat              Operation = "stat"
	OpShare             Operation = "share"
	OpDelete            Operation = "delete"
	OpSealedKey         Operation = "sealed_key"
	OpRegisterRecipient Operation = "register_recipient"
)

// Event describes the outcome of one store operation. Err is nil on success.
type Event struct {
	Op       Operation
	ObjectID string
	Identity string // caller
	Grantee  string // share only
	Err      error
	At       time.Time
}

// Succeeded reports whether the operation completed without error.
func (e Event) Succeeded() bool { return e.Err == nil }

// Kind classifies the event's error.
func (e Event) Kind() ErrorKind { return KindOf(e.Err) }

// Message is the error text, or empty on success.
func (e Event) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Notifier receives an Event after every store operation. Implementations
// must not block the caller for long and must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}
