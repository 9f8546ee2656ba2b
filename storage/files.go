package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore legt hochgeladene PDFs im Output-Verzeichnis ab, keyed by saved_as.
type FileStore struct {
	dir string
}

// NewFileStore creates the output directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Path returns the on-disk path for a storage key.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, name)
}

// Save writes the reader to the store and returns the byte count.
func (fs *FileStore) Save(name string, r io.Reader) (int64, error) {
	f, err := os.Create(fs.Path(name))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("write %s: %w", name, err)
	}
	return n, nil
}

// Remove deletes a stored file. A missing file is not an error: record
// deletion must succeed even when the file is already gone.
func (fs *FileStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := os.Remove(fs.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
