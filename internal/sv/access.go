package sv

import (
	"fmt"
	"slices"

	"sharevault/internal/model"
)

// State is the lifecycle state of a loaded object.
type State int

const (
	StateActive State = iota
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Object is a record paired with its key entry, as loaded for one operation.
type Object struct {
	Record *model.ObjectRecord
	Key    *model.KeyEntry
	State  State
}

// AccessController decides who may read, share and delete an object, and
// keeps a record's SharedWith and its key entry's AuthorizedIdentities in
// lockstep. Callers must hold the object's lock.
type AccessController struct{}

// Authorize reports whether caller may read the object. Identities are
// compared exactly.
func (AccessController) Authorize(caller string, obj *Object) bool {
	if obj == nil || obj.State != StateActive {
		return false
	}
	return slices.Contains(obj.Key.AuthorizedIdentities, caller)
}

// RequireOwner returns ErrNotOwner unless caller owns the object.
func (AccessController) RequireOwner(caller string, obj *Object) error {
	if obj == nil || obj.State != StateActive {
		return ErrNotFound
	}
	if caller != obj.Record.Owner {
		return ErrNotOwner
	}
	return nil
}

// Grant gives grantee read access. Only the owner may grant, and a grantee
// (including the owner) can be added only once.
func (a AccessController) Grant(caller string, obj *Object, grantee string) error {
	if err := a.RequireOwner(caller, obj); err != nil {
		return err
	}
	if grantee == obj.Record.Owner || slices.Contains(obj.Key.AuthorizedIdentities, grantee) {
		return fmt.Errorf("%w: %s", ErrAlreadyGranted, grantee)
	}
	obj.Record.SharedWith = append(obj.Record.SharedWith, grantee)
	obj.Key.AuthorizedIdentities = append(obj.Key.AuthorizedIdentities, grantee)
	return nil
}

// RevokeAll moves the object to StateDeleted, clears both identity lists and
// zeroes the in-memory key material.
func (AccessController) RevokeAll(obj *Object) {
	obj.State = StateDeleted
	obj.Record.SharedWith = nil
	obj.Key.AuthorizedIdentities = nil
	clear(obj.Key.KeyMaterial)
	obj.Key.KeyMaterial = nil
}
