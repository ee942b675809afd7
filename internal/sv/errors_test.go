package sv

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "not found", err: ErrNotFound, want: KindNotFound},
		{name: "wrapped denied", err: fmt.Errorf("get: %w", ErrAccessDenied), want: KindAccessDenied},
		{name: "not owner", err: ErrNotOwner, want: KindNotOwner},
		{name: "already granted", err: fmt.Errorf("%w: bob", ErrAlreadyGranted), want: KindAlreadyGranted},
		{name: "auth failure", err: ErrAuthenticationFailure, want: KindAuthenticationFailure},
		{name: "key material", err: ErrInvalidKeyMaterial, want: KindInvalidKeyMaterial},
		{name: "malformed", err: ErrMalformedInput, want: KindMalformedInput},
		{name: "identity", err: ErrInvalidIdentity, want: KindInvalidIdentity},
		{name: "no recipient", err: ErrNoRecipient, want: KindNoRecipient},
		{name: "locked", err: ErrLocked, want: KindLocked},
		{name: "upload wins over cause", err: fmt.Errorf("%w: %w", ErrUploadFailed, ErrInvalidKeyMaterial), want: KindUploadFailed},
		{name: "upload cancelled", err: fmt.Errorf("%w: %w", ErrUploadFailed, context.Canceled), want: KindUploadFailed},
		{name: "unknown", err: errors.New("disk on fire"), want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
