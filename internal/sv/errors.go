package sv

import (
	"errors"

	"sharevault/internal/aead"
	"sharevault/internal/codec"
	"sharevault/internal/keys"
)

// Errors returned by ObjectStore operations. Callers should match them with
// errors.Is; the returned error usually carries extra context.
var (
	ErrNotFound        = errors.New("object not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotOwner        = errors.New("only the owner may perform this operation")
	ErrAlreadyGranted  = errors.New("access already granted")
	ErrUploadFailed    = errors.New("upload failed")
	ErrInvalidIdentity = errors.New("invalid identity")
	ErrNoRecipient     = errors.New("no recipient registered for identity")
	ErrLocked          = errors.New("key protector is locked")
	ErrBlobNotFound    = errors.New("blob not found")

	ErrAuthenticationFailure = aead.ErrAuthenticationFailure
	ErrInvalidKeyMaterial    = keys.ErrInvalidKeyMaterial
	ErrMalformedInput        = codec.ErrMalformedInput
)

// ErrorKind is a stable, serializable classification of an error.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindNotFound              ErrorKind = "NotFound"
	KindAccessDenied          ErrorKind = "AccessDenied"
	KindNotOwner              ErrorKind = "NotOwner"
	KindAlreadyGranted        ErrorKind = "AlreadyGranted"
	KindAuthenticationFailure ErrorKind = "AuthenticationFailure"
	KindInvalidKeyMaterial    ErrorKind = "InvalidKeyMaterial"
	KindMalformedInput        ErrorKind = "MalformedInput"
	KindUploadFailed          ErrorKind = "UploadFailed"
	KindInvalidIdentity       ErrorKind = "InvalidIdentity"
	KindNoRecipient           ErrorKind = "NoRecipient"
	KindLocked                ErrorKind = "Locked"
	KindInternal              ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	// UploadFailed wraps its cause, so it has to be matched first.
	{ErrUploadFailed, KindUploadFailed},
	{ErrNotFound, KindNotFound},
	{ErrAccessDenied, KindAccessDenied},
	{ErrNotOwner, KindNotOwner},
	{ErrAlreadyGranted, KindAlreadyGranted},
	{ErrAuthenticationFailure, KindAuthenticationFailure},
	{ErrInvalidKeyMaterial, KindInvalidKeyMaterial},
	{ErrMalformedInput, KindMalformedInput},
	{ErrInvalidIdentity, KindInvalidIdentity},
	{ErrNoRecipient, KindNoRecipient},
	{ErrLocked, KindLocked},
}

// KindOf classifies err. A nil error has KindNone; anything unrecognized is
// KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
