package testutil

import (
	"sharevault/internal/encryption"
)

// NewTestKeyProtector creates a deterministic key protector for testing.
// Any passphrase unlocks it.
func NewTestKeyProtector() *encryption.TestKeyProtector {
	return encryption.NewTestKeyProtector()
}
