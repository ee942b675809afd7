package sv

import (
	"errors"
	"testing"

	"sharevault/internal/model"
)

func newObject(owner string, grantees ...string) *Object {
	return &Object{
		Record: &model.ObjectRecord{ID: "o", Owner: owner, SharedWith: append([]string{}, grantees...)},
		Key: &model.KeyEntry{
			ObjectID:             "o",
			KeyMaterial:          []byte{1, 2, 3},
			AuthorizedIdentities: append([]string{owner}, grantees...),
		},
		State: StateActive,
	}
}

func TestAccessController_Authorize(t *testing.T) {
	t.Parallel()
	var ac AccessController
	obj := newObject("alice", "bob")

	tests := []struct {
		caller string
		want   bool
	}{
		{"alice", true},
		{"bob", true},
		{"carol", false},
		{"", false},
		{"Bob", false},
	}
	for _, tt := range tests {
		if got := ac.Authorize(tt.caller, obj); got != tt.want {
			t.Errorf("Authorize(%q) = %v, want %v", tt.caller, got, tt.want)
		}
	}
	if ac.Authorize("alice", nil) {
		t.Error("Authorize(nil object) = true")
	}
}

func TestAccessController_Grant(t *testing.T) {
	t.Parallel()
	var ac AccessController

	tests := []struct {
		name    string
		caller  string
		grantee string
		want    error
	}{
		{name: "owner grants", caller: "alice", grantee: "carol"},
		{name: "grantee grants", caller: "bob", grantee: "carol", want: ErrNotOwner},
		{name: "duplicate", caller: "alice", grantee: "bob", want: ErrAlreadyGranted},
		{name: "owner as grantee", caller: "alice", grantee: "alice", want: ErrAlreadyGranted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			obj := newObject("alice", "bob")
			err := ac.Grant(tt.caller, obj, tt.grantee)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Grant() error = %v, want %v", err, tt.want)
			}
			wantShared := 1
			if tt.want == nil {
				wantShared = 2
			}
			if len(obj.Record.SharedWith) != wantShared {
				t.Errorf("SharedWith = %v", obj.Record.SharedWith)
			}
			if len(obj.Key.AuthorizedIdentities) != wantShared+1 {
				t.Errorf("AuthorizedIdentities = %v", obj.Key.AuthorizedIdentities)
			}
		})
	}
}

func TestAccessController_RevokeAll(t *testing.T) {
	t.Parallel()
	var ac AccessController
	obj := newObject("alice", "bob")
	material := obj.Key.KeyMaterial

	ac.RevokeAll(obj)

	if obj.State != StateDeleted {
		t.Errorf("State = %s, want deleted", obj.State)
	}
	if obj.Record.SharedWith != nil || obj.Key.AuthorizedIdentities != nil {
		t.Error("identity lists not cleared")
	}
	for _, b := range material {
		if b != 0 {
			t.Fatal("key material not zeroed")
		}
	}
	if ac.Authorize("alice", obj) {
		t.Error("owner still authorized after RevokeAll")
	}
	if err := ac.RequireOwner("alice", obj); !errors.Is(err, ErrNotFound) {
		t.Errorf("RequireOwner() after RevokeAll error = %v, want ErrNotFound", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	if StateActive.String() != "active" || StateDeleted.String() != "deleted" || State(7).String() != "State(7)" {
		t.Error("unexpected State strings")
	}
}
