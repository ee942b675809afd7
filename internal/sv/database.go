package sv

import (
	"context"
	"time"

	"sharevault/internal/model"
)

// Database persists object records, their key entries, grants, registered
// recipients and the event history. Multi-row writes are atomic.
type Database interface {
	// CreateObject inserts the record and its key entry in one transaction.
	CreateObject(ctx context.Context, record *model.ObjectRecord, entry *model.KeyEntry) error

	// FindObject returns the record and key entry for id.
	// Returns nil, nil, nil if no such object exists.
	FindObject(ctx context.Context, id string) (*model.ObjectRecord, *model.KeyEntry, error)

	// AddGrant appends grantee to the object's grant list.
	// Returns an error wrapping ErrAlreadyGranted if the pair already exists
	// and ErrNotFound if the object does not.
	AddGrant(ctx context.Context, objectID, grantee string, at time.Time) error

	// DeleteObject removes the record, key entry and grants in one
	// transaction. When erase is set, backends that can scrub freed pages do.
	// Returns an error wrapping ErrNotFound if the object does not exist.
	DeleteObject(ctx context.Context, id string, erase bool) error

	// ListObjects returns every stored record ordered by creation time, then id.
	ListObjects(ctx context.Context) ([]*model.ObjectRecord, error)

	// PutRecipient registers or replaces the recipient for an identity.
	PutRecipient(ctx context.Context, recipient *model.Recipient) error

	// FindRecipient returns nil, nil if the identity has no recipient.
	FindRecipient(ctx context.Context, identity string) (*model.Recipient, error)

	// RecordEvent appends an event to the history and assigns its ID.
	RecordEvent(ctx context.Context, event *model.Event) error

	// ListEvents returns up to limit events, newest first. A limit <= 0
	// returns all of them.
	ListEvents(ctx context.Context, limit int) ([]*model.Event, error)

	Close() error
}
