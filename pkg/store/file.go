package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps a snapshot in a single file. Saves write a temporary
// file next to the target and rename it into place.
type FileStore struct {
	path string
}

// NewFileStore returns a store for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (s *FileStore) Path() string { return s.path }

// Save writes the snapshot atomically.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Encode(tmp, snap); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("renaming snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot, returning ErrNotFound if the file does not exist.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.path, ErrNotFound)
		}
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return snap, nil
}
