package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sharevault/internal/model"
	"sharevault/internal/sv"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestChannel_DeliversAndDrops(t *testing.T) {
	t.Parallel()
	c := NewChannel(2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Notify(ctx, sv.Event{Op: sv.OpGet, ObjectID: fmt.Sprint(i)})
	}

	if got := c.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
	for _, want := range []string{"0", "1"} {
		ev := <-c.Events()
		if ev.ObjectID != want {
			t.Errorf("event ObjectID = %q, want %q", ev.ObjectID, want)
		}
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.log("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.log("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.log("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.log("ERROR", msg) }

func TestLog(t *testing.T) {
	t.Parallel()
	logger := &recordingLogger{}
	n := NewLog(logger)

	n.Notify(context.Background(), sv.Event{Op: sv.OpPut, ObjectID: "a"})
	n.Notify(context.Background(), sv.Event{Op: sv.OpGet, ObjectID: "a", Err: sv.ErrAccessDenied})

	want := []string{"INFO operation", "WARN operation failed"}
	if len(logger.lines) != len(want) {
		t.Fatalf("lines = %v, want %v", logger.lines, want)
	}
	for i := range want {
		if logger.lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, logger.lines[i], want[i])
		}
	}
}

type fakeRecorder struct {
	events []*model.Event
	err    error
}

func (r *fakeRecorder) RecordEvent(_ context.Context, e *model.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func TestAudit_RecordsEvents(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{}
	n := NewAudit(rec, nil)

	n.Notify(context.Background(), sv.Event{Op: sv.OpShare, ObjectID: "o1", Identity: "alice", Grantee: "bob", At: at})
	n.Notify(context.Background(), sv.Event{
		Op: sv.OpGet, ObjectID: "o1", Identity: "carol",
		Err: fmt.Errorf("reading: %w", sv.ErrAccessDenied), At: at,
	})

	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}

	share := rec.events[0]
	if share.Kind != "share" || share.Outcome != OutcomeSuccess || share.ErrorKind != "" {
		t.Errorf("share event = %+v", share)
	}
	if share.Message != "granted to bob" {
		t.Errorf("share Message = %q, want %q", share.Message, "granted to bob")
	}
	if !share.At.Equal(at) {
		t.Errorf("share At = %v, want %v", share.At, at)
	}

	denied := rec.events[1]
	if denied.Outcome != OutcomeFailure || denied.ErrorKind != string(sv.KindAccessDenied) {
		t.Errorf("denied event = %+v", denied)
	}
	if denied.Identity != "carol" {
		t.Errorf("denied Identity = %q, want carol", denied.Identity)
	}
}

func TestAudit_RecorderFailureIsLogged(t *testing.T) {
	t.Parallel()
	logger := &recordingLogger{}
	n := NewAudit(&fakeRecorder{err: errors.New("disk full")}, logger)

	n.Notify(context.Background(), sv.Event{Op: sv.OpPut, ObjectID: "x"})

	if len(logger.lines) != 1 || logger.lines[0] != "WARN failed to record event" {
		t.Errorf("lines = %v", logger.lines)
	}
}

func TestMulti(t *testing.T) {
	t.Parallel()
	a, b := NewChannel(1), NewChannel(1)
	Multi{a, Nop{}, b}.Notify(context.Background(), sv.Event{Op: sv.OpDelete, ObjectID: "z"})

	for i, c := range []*Channel{a, b} {
		select {
		case ev := <-c.Events():
			if ev.Op != sv.OpDelete {
				t.Errorf("notifier %d got op %q", i, ev.Op)
			}
		default:
			t.Errorf("notifier %d got no event", i)
		}
	}
}
