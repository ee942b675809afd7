package vault

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"sharevault/internal/sv"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It keeps every blob in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name  string
	blobs map[string][]byte // object id -> ciphertext
	mu    sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:  name,
		blobs: make(map[string][]byte),
	}
}

// PutBlob stores a blob under id.
func (m *MemoryVault) PutBlob(ctx context.Context, id string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs[id] = data
	return nil
}

// GetBlob writes the blob stored under id to w.
func (m *MemoryVault) GetBlob(ctx context.Context, id string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}

	return nil
}

// DeleteBlob removes the blob stored under id.
func (m *MemoryVault) DeleteBlob(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[id]; !ok {
		return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
	}
	delete(m.blobs, id)
	return nil
}

// EraseBlob zeroes the stored bytes before removing the blob.
func (m *MemoryVault) EraseBlob(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
	}
	clear(data)
	delete(m.blobs, id)
	return nil
}

// Has reports whether a blob is stored under id.
func (m *MemoryVault) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok
}

// Len returns the number of stored blobs.
func (m *MemoryVault) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Blobs returns a copy of every stored blob keyed by id.
func (m *MemoryVault) Blobs() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.blobs))
	for id, data := range m.blobs {
		out[id] = bytes.Clone(data)
	}
	return out
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup(ctx context.Context) error {
	return nil
}

// Compile-time checks that MemoryVault implements the vault interfaces.
var (
	_ sv.Vault  = (*MemoryVault)(nil)
	_ sv.Eraser = (*MemoryVault)(nil)
)
