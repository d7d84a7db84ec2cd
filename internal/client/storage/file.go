package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var fileNameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// FileBackend stores one JSON file per key under a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend rooted there.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, fileNameReplacer.Replace(key)+".json")
}

// Get implements Backend.
func (b *FileBackend) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put implements Backend. The value is written to a temp file, synced and
// renamed over the target so a crash never leaves a torn document.
func (b *FileBackend) Put(key string, value []byte) error {
	f, err := os.CreateTemp(b.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(value); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, b.path(key))
}
