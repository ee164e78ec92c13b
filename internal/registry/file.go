package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileBackend keeps artifacts in a directory tree:
//
//	<root>/<name>/v000001.json
//	<root>/<name>/LATEST
type FileBackend struct {
	root string
}

// NewFileBackend returns a backend rooted at dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{root: dir}
}

func (b *FileBackend) Latest(_ context.Context, name string) (int, error) {
	raw, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(latestName(name))))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrModelNotFound
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("invalid LATEST pointer for %s: %w", name, err)
	}
	return v, nil
}

func (b *FileBackend) Read(_ context.Context, name string, version int) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.root, filepath.FromSlash(objectName(name, version))))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
	}
	return data, err
}

func (b *FileBackend) Write(_ context.Context, name string, version int, data []byte) error {
	dir := filepath.Join(b.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(b.root, filepath.FromSlash(objectName(name, version))), data); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(b.root, filepath.FromSlash(latestName(name))), []byte(strconv.Itoa(version)))
}

// writeAtomic writes to a temporary file in the target directory and renames
// it into place so readers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
