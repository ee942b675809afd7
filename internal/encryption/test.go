package encryption

import (
	"bytes"
	"fmt"

	"sharevault/internal/sv"
)

// testHeader is prepended to key material by TestKeyProtector to make sealed
// output clearly different from the raw key while remaining deterministic
// and reversible.
var testHeader = []byte("SVKEY\x00\x00\x00")

// TestKeyProtector is a simple, deterministic protector for testing.
// It prepends a fixed 8-byte header when sealing and strips it when opening.
type TestKeyProtector struct {
	setupCalled bool
}

var _ sv.KeyProtector = (*TestKeyProtector)(nil)

// NewTestKeyProtector creates a new TestKeyProtector.
func NewTestKeyProtector() *TestKeyProtector {
	return &TestKeyProtector{}
}

func (p *TestKeyProtector) Setup(passphrase string) error {
	p.setupCalled = true
	return nil
}

func (p *TestKeyProtector) Seal(material []byte) ([]byte, error) {
	out := make([]byte, 0, len(testHeader)+len(material))
	out = append(out, testHeader...)
	return append(out, material...), nil
}

func (p *TestKeyProtector) Unlock(passphrase string) (sv.KeyOpener, error) {
	return TestKeyOpener{}, nil
}

func (p *TestKeyProtector) IsConfigured() bool {
	return true
}

// TestKeyOpener strips the test header added by TestKeyProtector.
type TestKeyOpener struct{}

var _ sv.KeyOpener = TestKeyOpener{}

func (TestKeyOpener) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < len(testHeader) || !bytes.Equal(sealed[:len(testHeader)], testHeader) {
		return nil, fmt.Errorf("%w: invalid test key header", sv.ErrInvalidKeyMaterial)
	}
	return bytes.Clone(sealed[len(testHeader):]), nil
}
