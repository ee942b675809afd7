package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"sharevault/internal/aead"
	"sharevault/internal/config"
	"sharevault/internal/database"
	"sharevault/internal/encryption"
	"sharevault/internal/fs"
	"sharevault/internal/identity"
	"sharevault/internal/model"
	"sharevault/internal/notify"
	"sharevault/internal/sv"
	"sharevault/internal/vault"
)

// SVApp is the application layer between the CLI and ObjectStore.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw paths, and manages the DB lifecycle on Close.
type SVApp struct {
	cfg       *config.Config
	db        sv.Database
	vault     sv.Vault
	protector sv.KeyProtector
	collector *fs.Collector
	store     *sv.ObjectStore
	logger    sv.Logger
	op        *Operation
	logFile   *os.File
}

// NewSVApp creates a fully wired SVApp from the given config.
// operation names the CLI command being run (e.g. "put", "share").
// The caller must call Close when done.
func NewSVApp(ctx context.Context, cfg *config.Config, operation string) (*SVApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	suite, err := aead.ParseSuite(cfg.Store.Cipher)
	if err != nil {
		return nil, fmt.Errorf("store cipher: %w", err)
	}

	validator, err := identity.NewValidatorFromConfig(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("creating identity validator: %w", err)
	}

	protector, err := encryption.NewKeyProtectorFromConfig(cfg.KeyProtection)
	if err != nil {
		return nil, fmt.Errorf("creating key protector: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := v.ValidateSetup(ctx); err != nil {
		return nil, fmt.Errorf("validating vault: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if checker, ok := db.(interface{ CheckMigrations() error }); ok {
		if err := checker.CheckMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("database schema out of date: %w", err)
		}
	}

	op := NewOperation(operation, time.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}
	if cfg.KeyProtection.Type == "plain" {
		log.Warn("object keys are stored unprotected", "key_protection", "plain")
	}

	notifiers := notify.Multi{notify.NewLog(log)}
	if cfg.Store.Audit {
		notifiers = append(notifiers, notify.NewAudit(db, log))
	}

	store, err := sv.NewObjectStore(sv.Deps{
		Database:  db,
		Vault:     v,
		Protector: protector,
		Sealer:    encryption.AgeRecipientSealer{},
		Identity:  validator,
		Notifier:  notifiers,
		Logger:    log,
		Clock:     sv.RealClock{},
		IDs:       sv.UUIDGenerator{},
		Suite:     suite,
		Erase:     cfg.Store.Erase,
	})
	if err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating object store: %w", err)
	}

	return &SVApp{
		cfg:       cfg,
		db:        db,
		vault:     v,
		protector: protector,
		collector: fs.NewCollector(cfg.Filesystem.Ignore),
		store:     store,
		logger:    log,
		op:        op,
		logFile:   logFile,
	}, nil
}

// Store returns the underlying ObjectStore.
func (a *SVApp) Store() *sv.ObjectStore { return a.store }

// NeedsPassphrase reports whether unlocking requires a real passphrase.
func (a *SVApp) NeedsPassphrase() bool {
	_, ok := a.protector.(*encryption.AgeKeyProtector)
	return ok
}

// KeysConfigured reports whether the key protector has been set up.
func (a *SVApp) KeysConfigured() bool {
	return a.protector.IsConfigured()
}

// SetupKeys generates the key pair that protects object keys at rest.
func (a *SVApp) SetupKeys(passphrase string) error {
	if a.protector.IsConfigured() {
		if _, ok := a.protector.(*encryption.AgeKeyProtector); ok {
			return fmt.Errorf("keys already exist at %s", a.cfg.KeyProtection.PrivateKeyPath)
		}
	}
	return a.protector.Setup(passphrase)
}

// PublicKey returns the age public key of the local key pair, if any.
func (a *SVApp) PublicKey() (string, error) {
	p, ok := a.protector.(*encryption.AgeKeyProtector)
	if !ok {
		return "", fmt.Errorf("key protection type %q has no public key", a.cfg.KeyProtection.Type)
	}
	return p.PublicKey()
}

// Unlock opens the key protector so objects can be read.
func (a *SVApp) Unlock(passphrase string) error {
	return a.store.Unlock(passphrase)
}

// PutFiles collects the file(s) at rawPath and stores each as a new object
// owned by owner. Returns the created records in collection order.
func (a *SVApp) PutFiles(ctx context.Context, owner, rawPath string, recursive bool) ([]*model.ObjectRecord, error) {
	sources, err := a.collector.Collect(rawPath, recursive)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}

	records := make([]*model.ObjectRecord, 0, len(sources))
	for _, src := range sources {
		rec, err := a.putSource(ctx, owner, src)
		if err != nil {
			a.op.Fail()
			return records, fmt.Errorf("storing %s: %w", src.RelPath, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (a *SVApp) putSource(ctx context.Context, owner string, src fs.Source) (*model.ObjectRecord, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return a.store.Put(ctx, owner, src.RelPath, fs.ContentType(src.RelPath, data), data, sv.WithLastModified(src.ModTime))
}

// GetTo decrypts object id for caller and writes the plaintext to w.
func (a *SVApp) GetTo(ctx context.Context, caller, id string, w io.Writer) (*model.ObjectRecord, error) {
	rec, err := a.store.Stat(ctx, caller, id)
	if err != nil {
		return nil, a.fail(err)
	}
	data, err := a.store.Get(ctx, caller, id)
	if err != nil {
		return nil, a.fail(err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, a.fail(fmt.Errorf("writing plaintext: %w", err))
	}
	return rec, nil
}

// GetToFile decrypts object id into dest. An empty dest or a directory
// uses the object's name. The file is created with mode 0600.
func (a *SVApp) GetToFile(ctx context.Context, caller, id, dest string) (string, error) {
	rec, err := a.store.Stat(ctx, caller, id)
	if err != nil {
		return "", a.fail(err)
	}
	data, err := a.store.Get(ctx, caller, id)
	if err != nil {
		return "", a.fail(err)
	}

	target := dest
	if target == "" {
		target = filepath.Base(rec.Name)
	} else if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, filepath.Base(rec.Name))
	}
	if err := os.WriteFile(target, data, 0600); err != nil {
		return "", a.fail(fmt.Errorf("writing %s: %w", target, err))
	}
	if !rec.LastModifiedAt.IsZero() {
		if err := os.Chtimes(target, rec.LastModifiedAt, rec.LastModifiedAt); err != nil {
			a.logger.Warn("failed to restore modification time", "path", target, "error", err)
		}
	}
	return target, nil
}

// Share grants grantee read access to object id.
func (a *SVApp) Share(ctx context.Context, caller, id, grantee string) (*model.ObjectRecord, error) {
	rec, err := a.store.Share(ctx, caller, id, grantee)
	return rec, a.fail(err)
}

// Delete removes object id.
func (a *SVApp) Delete(ctx context.Context, caller, id string) error {
	return a.fail(a.store.Delete(ctx, caller, id))
}

// List returns the objects identity owns, or those shared with it.
func (a *SVApp) List(ctx context.Context, identity string, shared bool) ([]*model.ObjectRecord, error) {
	if shared {
		return a.store.ListSharedWith(ctx, identity)
	}
	return a.store.ListOwned(ctx, identity)
}

// RegisterRecipient records identity's age public key.
func (a *SVApp) RegisterRecipient(ctx context.Context, identity, publicKey string) error {
	return a.fail(a.store.RegisterRecipient(ctx, identity, publicKey))
}

// SealedKey returns object id's key wrapped to caller's recipient.
func (a *SVApp) SealedKey(ctx context.Context, caller, id string) (string, error) {
	armored, err := a.store.SealedKeyFor(ctx, caller, id)
	return armored, a.fail(err)
}

// History returns the most recent recorded events.
func (a *SVApp) History(ctx context.Context, limit int) ([]*model.Event, error) {
	return a.store.History(ctx, limit)
}

// BackupDatabase writes a consistent snapshot of a SQLite metadata database
// to dest.
func (a *SVApp) BackupDatabase(ctx context.Context, dest string) error {
	b, ok := a.db.(interface {
		BackupTo(ctx context.Context, dest string) error
	})
	if !ok {
		return fmt.Errorf("database type %q does not support backups", a.cfg.Database.Type)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	return a.fail(b.BackupTo(ctx, dest))
}

func (a *SVApp) fail(err error) error {
	if err != nil {
		a.op.Fail()
	}
	return err
}

// Close records the operation outcome and closes all resources.
func (a *SVApp) Close() error {
	a.op.Finish(time.Now())
	a.logger.Debug("operation finished", "operation", a.op.Name, "status", a.op.Status, "duration", a.op.Duration())

	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
