package sv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sharevault/internal/aead"
	"sharevault/internal/keys"
	"sharevault/internal/model"
)

// Deps are the collaborators of an ObjectStore. Database, Vault and
// Protector are required; the rest fall back to sensible defaults.
type Deps struct {
	Database  Database
	Vault     Vault
	Protector KeyProtector
	Sealer    RecipientSealer
	Identity  IdentityValidator
	Notifier  Notifier
	Logger    Logger
	Clock     Clock
	IDs       IDGenerator
	Keys      *keys.Manager
	Suite     aead.Suite
	// Erase overwrites ciphertext and scrubs database pages on delete.
	Erase bool
}

// ObjectStore encrypts objects under per-object keys and enforces the
// owner/grantee access model. It is safe for concurrent use. Operations on
// the same object are serialized by a per-object reader/writer lock;
// operations on different objects run in parallel.
type ObjectStore struct {
	database  Database
	vault     Vault
	protector KeyProtector
	sealer    RecipientSealer
	identity  IdentityValidator
	notifier  Notifier
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	keys      *keys.Manager
	engine    *aead.Engine
	erase     bool

	access AccessController
	locks  *lockTable

	mu     sync.RWMutex
	opener KeyOpener
}

// NewObjectStore creates an ObjectStore from deps.
func NewObjectStore(deps Deps) (*ObjectStore, error) {
	if deps.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if deps.Vault == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if deps.Protector == nil {
		return nil, fmt.Errorf("key protector is required")
	}

	engine, err := aead.NewEngine(deps.Suite)
	if err != nil {
		return nil, fmt.Errorf("creating cipher engine: %w", err)
	}

	s := &ObjectStore{
		database:  deps.Database,
		vault:     deps.Vault,
		protector: deps.Protector,
		sealer:    deps.Sealer,
		identity:  deps.Identity,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		clock:     deps.Clock,
		idgen:     deps.IDs,
		keys:      deps.Keys,
		engine:    engine,
		erase:     deps.Erase,
		locks:     newLockTable(),
	}
	if s.identity == nil {
		s.identity = NonEmptyIdentity
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}
	if s.logger == nil {
		s.logger = NewNopLogger()
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.idgen == nil {
		s.idgen = UUIDGenerator{}
	}
	if s.keys == nil {
		s.keys = keys.NewManager()
	}
	return s, nil
}

// Unlock opens the key protector for this session. Reads and key exports
// fail with ErrLocked until it succeeds.
func (s *ObjectStore) Unlock(passphrase string) error {
	opener, err := s.protector.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking key protector: %w", err)
	}
	s.mu.Lock()
	s.opener = opener
	s.mu.Unlock()
	return nil
}

// PutOption adjusts the record created by Put.
type PutOption func(*model.ObjectRecord)

// WithLastModified records the source file's modification time.
func WithLastModified(t time.Time) PutOption {
	return func(r *model.ObjectRecord) { r.LastModifiedAt = t.UTC() }
}

// Put encrypts data under a fresh key and stores it as a new object owned by
// owner. The object becomes visible only once both the ciphertext and the
// record are durable; on failure nothing is left behind and the error wraps
// ErrUploadFailed.
//
// Strategy: write the ciphertext to the vault first, then commit the record
// and key entry in a single database transaction. If anything fails before
// the commit, the blob is removed again.
func (s *ObjectStore) Put(ctx context.Context, owner, name, contentType string, data []byte, opts ...PutOption) (*model.ObjectRecord, error) {
	record, err := s.put(ctx, owner, name, contentType, data, opts)
	ev := Event{Op: OpPut, Identity: owner, Err: err}
	if record != nil {
		ev.ObjectID = record.ID
	}
	s.emit(ctx, ev)
	return record, err
}

func (s *ObjectStore) put(ctx context.Context, owner, name, contentType string, data []byte, opts []PutOption) (*model.ObjectRecord, error) {
	if err := s.identity.Validate(owner); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	key, err := s.keys.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generating key: %w", ErrUploadFailed, err)
	}
	defer key.Destroy()

	nonce, err := s.engine.GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: generating nonce: %w", ErrUploadFailed, err)
	}
	ciphertext, err := s.engine.Encrypt(data, key, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting: %w", ErrUploadFailed, err)
	}

	material := s.keys.ExportKey(key)
	sealed, err := s.protector.Seal(material)
	clear(material)
	if err != nil {
		return nil, fmt.Errorf("%w: sealing key: %w", ErrUploadFailed, err)
	}

	id := s.idgen.New()
	now := s.clock.Now()
	record := &model.ObjectRecord{
		ID:             id,
		Name:           name,
		Size:           int64(len(data)),
		ContentType:    contentType,
		LastModifiedAt: now,
		CreatedAt:      now,
		Owner:          owner,
		SharedWith:     []string{},
		Nonce:          []byte(nonce),
		Cipher:         string(s.engine.Suite()),
	}
	for _, opt := range opts {
		opt(record)
	}
	entry := &model.KeyEntry{
		ObjectID:             id,
		KeyMaterial:          sealed,
		Nonce:                []byte(nonce),
		AuthorizedIdentities: []string{owner},
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.vault.PutBlob(ctx, id, bytes.NewReader(ciphertext), int64(len(ciphertext))); err != nil {
		s.discardBlob(id)
		return nil, fmt.Errorf("%w: storing ciphertext: %w", ErrUploadFailed, err)
	}
	if err := ctx.Err(); err != nil {
		s.discardBlob(id)
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if err := s.database.CreateObject(ctx, record, entry); err != nil {
		s.discardBlob(id)
		return nil, fmt.Errorf("%w: recording object: %w", ErrUploadFailed, err)
	}

	s.logger.Info("object stored", "id", id, "owner", owner, "size", record.Size)
	return record.Clone(), nil
}

// discardBlob removes a blob written by a Put that did not commit. It runs
// even when the Put's context is already cancelled.
func (s *ObjectStore) discardBlob(id string) {
	err := s.vault.DeleteBlob(context.Background(), id)
	if err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Warn("failed to discard uncommitted blob", "id", id, "error", err)
	}
}

// Get decrypts and returns the object's plaintext. The caller must be the
// owner or a grantee; otherwise ErrAccessDenied is returned. Unknown IDs
// yield ErrNotFound.
func (s *ObjectStore) Get(ctx context.Context, caller, id string) ([]byte, error) {
	data, err := s.get(ctx, caller, id)
	s.emit(ctx, Event{Op: OpGet, ObjectID: id, Identity: caller, Err: err})
	return data, err
}

func (s *ObjectStore) get(ctx context.Context, caller, id string) ([]byte, error) {
	unlock := s.locks.RLock(id)
	defer unlock()

	obj, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.Authorize(caller, obj) {
		return nil, ErrAccessDenied
	}

	key, err := s.openKey(obj.Key)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	if !bytes.Equal(obj.Key.Nonce, obj.Record.Nonce) {
		return nil, fmt.Errorf("%w: nonce mismatch for object %s", ErrAuthenticationFailure, id)
	}

	var buf bytes.Buffer
	if err := s.vault.GetBlob(ctx, id, &buf); err != nil {
		// A record without its blob is corrupted storage, not a missing object.
		if errors.Is(err, ErrBlobNotFound) {
			return nil, fmt.Errorf("%w: ciphertext of object %s: %w", ErrAuthenticationFailure, id, err)
		}
		return nil, fmt.Errorf("reading ciphertext: %w", err)
	}

	engine, err := s.engineFor(obj.Record)
	if err != nil {
		return nil, err
	}
	data, err := engine.Decrypt(buf.Bytes(), key, obj.Record.Nonce)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("object read", "id", id, "caller", caller)
	return data, nil
}

// Stat returns the object's record under the same rules as Get.
func (s *ObjectStore) Stat(ctx context.Context, caller, id string) (*model.ObjectRecord, error) {
	record, err := s.stat(ctx, caller, id)
	s.emit(ctx, Event{Op: OpStat, ObjectID: id, Identity: caller, Err: err})
	return record, err
}

func (s *ObjectStore) stat(ctx context.Context, caller, id string) (*model.ObjectRecord, error) {
	unlock := s.locks.RLock(id)
	defer unlock()

	obj, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.Authorize(caller, obj) {
		return nil, ErrAccessDenied
	}
	return obj.Record.Clone(), nil
}

// Share grants grantee read access. Only the owner may share, and sharing
// with an identity that already has access fails with ErrAlreadyGranted.
func (s *ObjectStore) Share(ctx context.Context, caller, id, grantee string) (*model.ObjectRecord, error) {
	record, err := s.share(ctx, caller, id, grantee)
	s.emit(ctx, Event{Op: OpShare, ObjectID: id, Identity: caller, Grantee: grantee, Err: err})
	return record, err
}

func (s *ObjectStore) share(ctx context.Context, caller, id, grantee string) (*model.ObjectRecord, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	obj, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.RequireOwner(caller, obj); err != nil {
		return nil, err
	}
	if err := s.identity.Validate(grantee); err != nil {
		return nil, err
	}
	if err := s.access.Grant(caller, obj, grantee); err != nil {
		return nil, err
	}
	if err := s.database.AddGrant(ctx, id, grantee, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("recording grant: %w", err)
	}

	s.logger.Info("object shared", "id", id, "grantee", grantee)
	return obj.Record.Clone(), nil
}

// Delete removes the object, its key and all grants. Only the owner may
// delete.
//
// Strategy: the database transaction runs first so the key is gone before
// the ciphertext. A blob left behind by a failed vault delete can no
// longer be decrypted and is only logged.
func (s *ObjectStore) Delete(ctx context.Context, caller, id string) error {
	err := s.delete(ctx, caller, id)
	s.emit(ctx, Event{Op: OpDelete, ObjectID: id, Identity: caller, Err: err})
	return err
}

func (s *ObjectStore) delete(ctx context.Context, caller, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	obj, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireOwner(caller, obj); err != nil {
		return err
	}

	if err := s.database.DeleteObject(ctx, id, s.erase); err != nil {
		return fmt.Errorf("deleting object record: %w", err)
	}
	s.access.RevokeAll(obj)

	if err := s.removeBlob(ctx, id); err != nil {
		s.logger.Warn("ciphertext left in vault", "id", id, "error", err)
	}
	s.logger.Info("object deleted", "id", id)
	return nil
}

func (s *ObjectStore) removeBlob(ctx context.Context, id string) error {
	ctx = context.WithoutCancel(ctx)
	if eraser, ok := s.vault.(Eraser); ok && s.erase {
		return eraser.EraseBlob(ctx, id)
	}
	return s.vault.DeleteBlob(ctx, id)
}

// load reads an object from the database. Callers must hold its lock.
func (s *ObjectStore) load(ctx context.Context, id string) (*Object, error) {
	record, entry, err := s.database.FindObject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding object: %w", err)
	}
	if record == nil || entry == nil {
		return nil, ErrNotFound
	}
	return &Object{Record: record, Key: entry, State: StateActive}, nil
}

// openKey unseals and imports an object's key.
func (s *ObjectStore) openKey(entry *model.KeyEntry) (keys.Key, error) {
	s.mu.RLock()
	opener := s.opener
	s.mu.RUnlock()
	if opener == nil {
		return keys.Key{}, ErrLocked
	}

	material, err := opener.Open(entry.KeyMaterial)
	if err != nil {
		return keys.Key{}, fmt.Errorf("opening object key: %w", err)
	}
	defer clear(material)
	return s.keys.ImportKey(material)
}

func (s *ObjectStore) engineFor(record *model.ObjectRecord) (*aead.Engine, error) {
	if record.Cipher == "" || aead.Suite(record.Cipher) == s.engine.Suite() {
		return s.engine, nil
	}
	engine, err := aead.NewEngine(aead.Suite(record.Cipher))
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", record.ID, err)
	}
	return engine, nil
}

func (s *ObjectStore) emit(ctx context.Context, ev Event) {
	ev.At = s.clock.Now()
	if ev.Err != nil {
		s.logger.Debug("operation failed", "op", ev.Op, "id", ev.ObjectID, "kind", ev.Kind(), "error", ev.Err)
	}
	s.notifier.Notify(context.WithoutCancel(ctx), ev)
}
