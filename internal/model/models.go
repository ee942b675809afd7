package model

import (
	"slices"
	"time"
)

// ObjectRecord is the descriptive metadata of one stored object.
// ID, Owner, Nonce and CreatedAt never change after creation; SharedWith
// only grows through an explicit grant.
type ObjectRecord struct {
	ID             string // UUID, sole lookup key
	Name           string // display only
	Size           int64  // plaintext size in bytes
	ContentType    string
	LastModifiedAt time.Time // mtime of the source file, if known
	CreatedAt      time.Time
	Owner          string
	SharedWith     []string // grantees in grant order, owner excluded
	Nonce          []byte
	Cipher         string // AEAD suite that sealed the blob
}

// Clone returns a deep copy so callers cannot mutate store state.
func (r *ObjectRecord) Clone() *ObjectRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.SharedWith = slices.Clone(r.SharedWith)
	c.Nonce = slices.Clone(r.Nonce)
	return &c
}

// IsSharedWith reports whether identity appears in SharedWith.
func (r *ObjectRecord) IsSharedWith(identity string) bool {
	return slices.Contains(r.SharedWith, identity)
}

// KeyEntry holds the key material protecting one object. It is private to
// the store and created and destroyed together with its ObjectRecord.
type KeyEntry struct {
	ObjectID             string
	KeyMaterial          []byte // exported key, sealed by the configured key protector
	Nonce                []byte // always equal to ObjectRecord.Nonce
	AuthorizedIdentities []string
}

// Clone returns a deep copy.
func (k *KeyEntry) Clone() *KeyEntry {
	if k == nil {
		return nil
	}
	c := *k
	c.KeyMaterial = slices.Clone(k.KeyMaterial)
	c.Nonce = slices.Clone(k.Nonce)
	c.AuthorizedIdentities = slices.Clone(k.AuthorizedIdentities)
	return &c
}

// Recipient is the age public key an identity has registered for receiving
// wrapped object keys.
type Recipient struct {
	Identity  string
	PublicKey string // age1...
	CreatedAt time.Time
}

// Event is one recorded store operation outcome.
type Event struct {
	ID        int64
	ObjectID  string
	Kind      string // put, get, share, delete, ...
	Identity  string
	Outcome   string // "success" or "failure"
	ErrorKind string
	Message   string
	At        time.Time
}
