package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sharevault/internal/sv"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores blobs as files in a directory structure sharded by id prefix:
//
//	<root>/
//	  blobs/
//	    <id[:2]>/
//	      <id>     (ciphertext)
type FileSystemVault struct {
	name     string
	root     string
	blobsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	blobsDir := filepath.Join(root, "blobs")

	if err := os.MkdirAll(blobsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create blobs directory: %w", err)
	}

	return &FileSystemVault{
		name:     name,
		root:     root,
		blobsDir: blobsDir,
	}, nil
}

// blobPath maps an id to its file. IDs containing path separators or dots
// only are rejected so a blob can never escape the vault root.
func (v *FileSystemVault) blobPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Trim(id, ".") == "" {
		return "", fmt.Errorf("invalid blob id: %q", id)
	}
	shard := id
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(v.blobsDir, shard, id), nil
}

// PutBlob stores a blob under id, replacing any previous one atomically.
func (v *FileSystemVault) PutBlob(ctx context.Context, id string, r io.Reader, size int64) error {
	destPath, err := v.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0700); err != nil {
		return fmt.Errorf("failed to create shard directory: %w", err)
	}
	return v.writeFile(ctx, destPath, r, size)
}

// GetBlob writes the blob stored under id to w.
func (v *FileSystemVault) GetBlob(ctx context.Context, id string, w io.Writer) error {
	srcPath, err := v.blobPath(id)
	if err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

// DeleteBlob removes the blob stored under id.
func (v *FileSystemVault) DeleteBlob(ctx context.Context, id string) error {
	path, err := v.blobPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
		}
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// EraseBlob overwrites the blob with zeros and syncs it to disk before
// removing it.
func (v *FileSystemVault) EraseBlob(ctx context.Context, id string) error {
	path, err := v.blobPath(id)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", sv.ErrBlobNotFound, id)
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat blob: %w", err)
	}
	if _, err := io.CopyN(f, zeroReader{}, info.Size()); err != nil {
		f.Close()
		return fmt.Errorf("failed to overwrite blob: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close blob: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup(ctx context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	info, err = os.Stat(v.blobsDir)
	if err != nil {
		return fmt.Errorf("vault directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault path is not a directory: %s", v.blobsDir)
	}

	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(ctx context.Context, destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time checks that FileSystemVault implements the vault interfaces.
var (
	_ sv.Vault  = (*FileSystemVault)(nil)
	_ sv.Eraser = (*FileSystemVault)(nil)
)
