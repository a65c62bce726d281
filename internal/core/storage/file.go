package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

type fileStorage struct {
	dir string
	ext string

	mu     sync.Mutex
	reads  atomic.Int64
	writes atomic.Int64
}

// NewFile returns a Storage keeping one file per key in dir, named key+ext.
func NewFile(dir, ext string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStorage{dir: dir, ext: ext}, nil
}

func (f *fileStorage) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key+f.ext), nil
}

func (f *fileStorage) Create(ctx context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	if err != nil {
		return err
	}
	if _, err = file.Write(value); err != nil {
		_ = file.Close()
		return err
	}
	f.writes.Add(1)
	return file.Close()
}

func (f *fileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	f.reads.Add(1)
	return data, nil
}

func (f *fileStorage) Update(ctx context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err = os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	// Write to a temp file first so readers never see a partial snapshot.
	tmp := p + ".tmp"
	if err = os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	if err = os.Rename(tmp, p); err != nil {
		return err
	}
	f.writes.Add(1)
	return nil
}

func (f *fileStorage) Delete(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return err
}

func (f *fileStorage) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, f.ext) {
			continue
		}
		key := strings.TrimSuffix(name, f.ext)
		if ValidateKey(key) == nil {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *fileStorage) Statistics() Statistics {
	st := Statistics{Reads: f.reads.Load(), Writes: f.writes.Load()}
	keys, err := f.Keys(context.Background())
	if err != nil {
		return st
	}
	st.Keys = len(keys)
	for _, k := range keys {
		if info, err := os.Stat(filepath.Join(f.dir, k+f.ext)); err == nil {
			st.Bytes += info.Size()
		}
	}
	return st
}
