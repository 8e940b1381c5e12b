package kv

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File stores each key as one file under dir. Writes go through a temp
// file and rename so a crash never leaves a half-written value.
type File struct {
	mu    sync.Mutex
	dir   string
	quota int64
}

// NewFile creates the directory if needed. quota is the total byte budget
// of the directory (0 = unlimited).
func NewFile(dir string, quota int64) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("kv: create dir %s: %w", dir, err)
	}
	return &File{dir: dir, quota: quota}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(key))+".json")
}

// Get reads the value for key
func (f *File) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: read %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes value for key atomically
func (f *File) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.path(key)
	if f.quota > 0 {
		used, err := f.usedExcept(target)
		if err != nil {
			return err
		}
		if used+int64(len(value)) > f.quota {
			return ErrQuotaExceeded
		}
	}

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("kv: temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(value); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("kv: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("kv: rename %q: %w", key, err)
	}
	return nil
}

// Remove deletes the file for key
func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kv: remove %q: %w", key, err)
	}
	return nil
}

func (f *File) usedExcept(skip string) (int64, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("kv: read dir: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Join(f.dir, e.Name()) == skip {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}
