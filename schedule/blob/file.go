package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// FILE STORE - One file per key under a directory
// =============================================================================

// File stores each key as <Dir>/<key>.json. Writes go to a temp file in the
// same directory and are renamed over the target, so a crash never leaves a
// half-written blob.
type File struct {
	Dir string
	mu  sync.Mutex
}

func NewFile(dir string) *File {
	return &File{Dir: dir}
}

// Path returns the file a key is stored in.
func (f *File) Path(key string) (string, error) {
	name, err := fileName(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.Dir, name+".json"), nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := f.Path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (f *File) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := f.Path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return WriteFileAtomic(path, data, 0o600)
}

// fileName maps a key to a safe base name.
func fileName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("blob key is empty")
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if strings.Trim(name, ".") == "" {
		return "", fmt.Errorf("blob key %q has no usable characters", key)
	}
	return name, nil
}

// WriteFileAtomic writes data to a temp file next to path, syncs it, sets
// perm and renames it over path. Parent directories are created 0700.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

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
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
