package sv

import (
	"fmt"
	"strings"
)

// IdentityValidator decides which strings are acceptable owner, grantee and
// recipient identities. Invalid identities yield an error wrapping
// ErrInvalidIdentity.
type IdentityValidator interface {
	Validate(identity string) error
}

// IdentityValidatorFunc adapts a plain function to IdentityValidator.
type IdentityValidatorFunc func(identity string) error

func (f IdentityValidatorFunc) Validate(identity string) error { return f(identity) }

// NonEmptyIdentity accepts any identity that is not blank.
var NonEmptyIdentity = IdentityValidatorFunc(func(identity string) error {
	if strings.TrimSpace(identity) == "" {
		return fmt.Errorf("%w: identity is empty", ErrInvalidIdentity)
	}
	return nil
})
