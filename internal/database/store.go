package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sharevault/internal/codec"
	"sharevault/internal/model"
	"sharevault/internal/sv"
)

// dialect captures what differs between the SQL backends.
type dialect interface {
	// rebind rewrites ? placeholders into the backend's syntax.
	rebind(query string) string
	isUniqueViolation(err error) bool
	// secureDelete makes the current transaction scrub freed pages.
	secureDelete(ctx context.Context, tx *sql.Tx) error
}

// store implements sv.Database over database/sql. Queries are hand-written
// with ? placeholders and rebound per dialect.
type store struct {
	db *sql.DB
	// reader, when set, serves the read-only queries.
	reader  *sql.DB
	dialect dialect
}

func (s *store) readDB() *sql.DB {
	if s.reader != nil {
		return s.reader
	}
	return s.db
}

const objectColumns = `o.id, o.name, o.size, o.content_type, o.last_modified_at, o.created_at, o.owner, o.nonce, o.cipher`

// Object operations

func (s *store) CreateObject(ctx context.Context, record *model.ObjectRecord, entry *model.KeyEntry) error {
	if record.ID != entry.ObjectID {
		return fmt.Errorf("key entry %s does not belong to object %s", entry.ObjectID, record.ID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO objects (id, name, size, content_type, last_modified_at, created_at, owner, nonce, cipher)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		record.ID, record.Name, record.Size, record.ContentType,
		record.LastModifiedAt.UTC(), record.CreatedAt.UTC(), record.Owner,
		codec.Encode(record.Nonce), record.Cipher,
	)
	if err != nil {
		return fmt.Errorf("inserting object: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO key_entries (object_id, key_material, nonce) VALUES (?, ?, ?)`),
		entry.ObjectID, codec.Encode(entry.KeyMaterial), codec.Encode(entry.Nonce),
	)
	if err != nil {
		return fmt.Errorf("inserting key entry: %w", err)
	}

	for _, grantee := range record.SharedWith {
		if err := s.insertGrant(ctx, tx, record.ID, grantee, record.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *store) FindObject(ctx context.Context, id string) (*model.ObjectRecord, *model.KeyEntry, error) {
	tx, err := s.readDB().BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, s.q(`SELECT `+objectColumns+`, k.key_material, k.nonce
		FROM objects o JOIN key_entries k ON k.object_id = o.id
		WHERE o.id = ?`), id)

	var keyMaterial, keyNonce string
	record, err := scanObject(row, &keyMaterial, &keyNonce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("finding object %s: %w", id, err)
	}

	entry := &model.KeyEntry{ObjectID: record.ID}
	if entry.KeyMaterial, err = codec.Decode(keyMaterial); err != nil {
		return nil, nil, fmt.Errorf("decoding key material for %s: %w", id, err)
	}
	if entry.Nonce, err = codec.Decode(keyNonce); err != nil {
		return nil, nil, fmt.Errorf("decoding key nonce for %s: %w", id, err)
	}

	rows, err := tx.QueryContext(ctx, s.q(`SELECT identity FROM grants WHERE object_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, nil, fmt.Errorf("finding grants for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var grantee string
		if err := rows.Scan(&grantee); err != nil {
			return nil, nil, fmt.Errorf("scanning grant: %w", err)
		}
		record.SharedWith = append(record.SharedWith, grantee)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating grants: %w", err)
	}

	entry.AuthorizedIdentities = append([]string{record.Owner}, record.SharedWith...)
	return record, entry, nil
}

func (s *store) AddGrant(ctx context.Context, objectID, grantee string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, s.q(`SELECT owner FROM objects WHERE id = ?`), objectID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", sv.ErrNotFound, objectID)
		}
		return fmt.Errorf("finding object %s: %w", objectID, err)
	}
	if owner == grantee {
		return fmt.Errorf("%w: %s", sv.ErrAlreadyGranted, grantee)
	}

	if err := s.insertGrant(ctx, tx, objectID, grantee, at); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *store) insertGrant(ctx context.Context, tx *sql.Tx, objectID, grantee string, at time.Time) error {
	_, err := tx.ExecContext(ctx, s.q(`INSERT INTO grants (object_id, identity, granted_at) VALUES (?, ?, ?)`),
		objectID, grantee, at.UTC(),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", sv.ErrAlreadyGranted, grantee)
		}
		return fmt.Errorf("inserting grant: %w", err)
	}
	return nil
}

func (s *store) DeleteObject(ctx context.Context, id string, erase bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if erase {
		if err := s.dialect.secureDelete(ctx, tx); err != nil {
			return fmt.Errorf("enabling secure delete: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM grants WHERE object_id = ?`), id); err != nil {
		return fmt.Errorf("deleting grants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM key_entries WHERE object_id = ?`), id); err != nil {
		return fmt.Errorf("deleting key entry: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM objects WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", sv.ErrNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *store) ListObjects(ctx context.Context) ([]*model.ObjectRecord, error) {
	tx, err := s.readDB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT `+objectColumns+` FROM objects o ORDER BY o.created_at, o.id`)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	var records []*model.ObjectRecord
	byID := make(map[string]*model.ObjectRecord)
	for rows.Next() {
		record, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		records = append(records, record)
		byID[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}
	rows.Close()

	grants, err := tx.QueryContext(ctx, `SELECT object_id, identity FROM grants ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer grants.Close()

	for grants.Next() {
		var objectID, grantee string
		if err := grants.Scan(&objectID, &grantee); err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		if record, ok := byID[objectID]; ok {
			record.SharedWith = append(record.SharedWith, grantee)
		}
	}
	if err := grants.Err(); err != nil {
		return nil, fmt.Errorf("iterating grants: %w", err)
	}

	return records, nil
}

// Recipient operations

func (s *store) PutRecipient(ctx context.Context, recipient *model.Recipient) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO recipients (identity, public_key, created_at) VALUES (?, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET public_key = excluded.public_key, created_at = excluded.created_at`),
		recipient.Identity, recipient.PublicKey, recipient.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storing recipient: %w", err)
	}
	return nil
}

func (s *store) FindRecipient(ctx context.Context, identity string) (*model.Recipient, error) {
	var r model.Recipient
	err := s.readDB().QueryRowContext(ctx, s.q(`SELECT identity, public_key, created_at FROM recipients WHERE identity = ?`), identity).
		Scan(&r.Identity, &r.PublicKey, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding recipient: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// Event history

func (s *store) RecordEvent(ctx context.Context, event *model.Event) error {
	err := s.db.QueryRowContext(ctx, s.q(`INSERT INTO events (object_id, kind, identity, outcome, error_kind, message, at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		event.ObjectID, event.Kind, event.Identity, event.Outcome, event.ErrorKind, event.Message, event.At.UTC(),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

func (s *store) ListEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	query := `SELECT id, object_id, kind, identity, outcome, error_kind, message, at FROM events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.readDB().QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.ObjectID, &e.Kind, &e.Identity, &e.Outcome, &e.ErrorKind, &e.Message, &e.At); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.At = e.At.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// Close closes the database connection.
func (s *store) Close() error {
	var errs []error
	for _, db := range []*sql.DB{s.reader, s.db} {
		if db != nil {
			errs = append(errs, db.Close())
		}
	}
	return errors.Join(errs...)
}

func (s *store) q(query string) string {
	return s.dialect.rebind(query)
}

type scanner interface {
	Scan(dest ...any) error
}

// scanObject reads the objectColumns, followed by any extra destinations.
func scanObject(row scanner, extra ...any) (*model.ObjectRecord, error) {
	var r model.ObjectRecord
	var nonce string
	dest := append([]any{
		&r.ID, &r.Name, &r.Size, &r.ContentType, &r.LastModifiedAt, &r.CreatedAt, &r.Owner, &nonce, &r.Cipher,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	decoded, err := codec.Decode(nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce for %s: %w", r.ID, err)
	}
	r.Nonce = decoded
	r.LastModifiedAt = r.LastModifiedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	r.SharedWith = []string{}
	return &r, nil
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Compile-time check that store implements sv.Database interface
var _ sv.Database = (*store)(nil)
