// Package identity provides the identity validators a store can be configured
// with.
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"sharevault/internal/config"
	"sharevault/internal/sv"
)

// Any accepts every non-blank identity.
var Any sv.IdentityValidator = sv.NonEmptyIdentity

// aptosAddress is a full-length account address: 0x followed by 32 bytes of
// lowercase hex. Identities are compared byte for byte, so one spelling per
// account is allowed.
var aptosAddress = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// Aptos accepts full-length Aptos account addresses in lowercase.
var Aptos sv.IdentityValidator = sv.IdentityValidatorFunc(func(identity string) error {
	if !aptosAddress.MatchString(identity) {
		return fmt.Errorf("%w: %q is not a 0x-prefixed 64 digit lowercase hex address", sv.ErrInvalidIdentity, identity)
	}
	return nil
})

// Pattern accepts identities matching a regular expression.
type Pattern struct {
	re *regexp.Regexp
}

// NewPattern compiles expr. The expression is anchored so that it must match
// the whole identity.
func NewPattern(expr string) (*Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("identity pattern is empty")
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compiling identity pattern: %w", err)
	}
	return &Pattern{re: re}, nil
}

func (p *Pattern) Validate(identity string) error {
	if identity == "" || !p.re.MatchString(identity) {
		return fmt.Errorf("%w: %q does not match %s", sv.ErrInvalidIdentity, identity, p.re)
	}
	return nil
}

// NewValidatorFromConfig returns the validator named by cfg.Type.
func NewValidatorFromConfig(cfg config.IdentityConfig) (sv.IdentityValidator, error) {
	switch cfg.Type {
	case "any", "":
		return Any, nil
	case "aptos":
		return Aptos, nil
	case "pattern":
		p, err := NewPattern(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown identity type: %q", cfg.Type)
	}
}
