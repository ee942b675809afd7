// Package keys generates, exports and imports the per-object symmetric keys.
package keys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Size is the length in bytes of every object key (AES-256 strength).
const Size = 32

// ErrInvalidKeyMaterial is returned when imported bytes are not a valid key.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// Key is an opaque symmetric key. The zero value is not a valid key.
type Key struct {
	material []byte
}

// Valid reports whether k holds key material of the expected size.
func (k Key) Valid() bool {
	return len(k.material) == Size
}

// Bytes exposes the key material to cipher implementations. Callers must
// not retain or modify the returned slice.
func (k Key) Bytes() []byte {
	return k.material
}

// Destroy overwrites the key material with zeros.
func (k Key) Destroy() {
	for i := range k.material {
		k.material[i] = 0
	}
}

// Manager creates keys from a random source.
type Manager struct {
	rand io.Reader
}

// NewManager returns a Manager reading from crypto/rand.
func NewManager() *Manager {
	return &Manager{rand: rand.Reader}
}

// NewManagerWithReader returns a Manager reading from r. Only tests should
// pass anything other than a cryptographically secure source.
func NewManagerWithReader(r io.Reader) *Manager {
	return &Manager{rand: r}
}

// GenerateKey returns a fresh random key.
func (m *Manager) GenerateKey() (Key, error) {
	material := make([]byte, Size)
	if _, err := io.ReadFull(m.rand, material); err != nil {
		return Key{}, fmt.Errorf("reading random key material: %w", err)
	}
	return Key{material: material}, nil
}

// ExportKey returns a copy of the raw key bytes for storage.
func (m *Manager) ExportKey(k Key) []byte {
	out := make([]byte, len(k.material))
	copy(out, k.material)
	return out
}

// ImportKey rebuilds a key from raw bytes produced by ExportKey.
func (m *Manager) ImportKey(b []byte) (Key, error) {
	if len(b) != Size {
		return Key{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyMaterial, len(b), Size)
	}
	material := make([]byte, Size)
	copy(material, b)
	return Key{material: material}, nil
}
