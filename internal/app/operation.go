package app

import "time"

// Operation status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation tracks one CLI command for logging. Its ID tags every log line
// written while the command runs.
type Operation struct {
	ID         string
	Name       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewOperation creates an operation that started at now.
func NewOperation(name string, now time.Time) *Operation {
	now = now.UTC()
	return &Operation{
		ID:        now.Format("20060102T150405Z"),
		Name:      name,
		Status:    StatusSuccess,
		StartedAt: now,
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = StatusError
}

// Finish records the end time.
func (op *Operation) Finish(now time.Time) {
	op.FinishedAt = now.UTC()
}

// Duration is zero until Finish is called.
func (op *Operation) Duration() time.Duration {
	if op.FinishedAt.IsZero() {
		return 0
	}
	return op.FinishedAt.Sub(op.StartedAt)
}
