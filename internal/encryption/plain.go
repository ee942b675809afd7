package encryption

import (
	"slices"

	"sharevault/internal/sv"
)

// PlainKeyProtector stores exported keys as-is. Anyone who can read the
// database can decrypt every object; use it only where the database itself
// is protected.
type PlainKeyProtector struct{}

var (
	_ sv.KeyProtector = PlainKeyProtector{}
	_ sv.KeyOpener    = PlainKeyProtector{}
)

func (PlainKeyProtector) Setup(string) error { return nil }

func (PlainKeyProtector) Seal(material []byte) ([]byte, error) {
	return slices.Clone(material), nil
}

func (p PlainKeyProtector) Unlock(string) (sv.KeyOpener, error) { return p, nil }

func (PlainKeyProtector) IsConfigured() bool { return true }

func (PlainKeyProtector) Open(sealed []byte) ([]byte, error) {
	return slices.Clone(sealed), nil
}
