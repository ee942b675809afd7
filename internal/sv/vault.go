package sv

import (
	"context"
	"io"
)

// Vault stores encrypted object blobs keyed by object ID.
// All operations use io.Reader/io.Writer so backends can stream.
type Vault interface {
	// PutBlob stores ciphertext under id, replacing anything already there.
	// size is the number of bytes that will be read from r.
	PutBlob(ctx context.Context, id string, r io.Reader, size int64) error

	// GetBlob writes the blob stored under id to w.
	// Returns an error wrapping ErrBlobNotFound if nothing is stored.
	GetBlob(ctx context.Context, id string, w io.Writer) error

	// DeleteBlob removes the blob stored under id.
	// Returns an error wrapping ErrBlobNotFound if nothing is stored.
	DeleteBlob(ctx context.Context, id string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Eraser is implemented by vaults that can overwrite a blob's bytes before
// removing it. Used when the store is configured to erase on delete.
type Eraser interface {
	EraseBlob(ctx context.Context, id string) error
}
