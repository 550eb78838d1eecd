// Package file implements SlotRepository on a local directory, one JSON
// document per slot.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/repository"
)

const ext = ".json"

// SlotRepo stores each slot as <dir>/<key>.json.
type SlotRepo struct {
	dir string
	mu  sync.Mutex
}

// NewSlotRepo creates dir if needed and returns a repository rooted there.
func NewSlotRepo(dir string) (*SlotRepo, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("state dir: %w", err)
	}
	return &SlotRepo{dir: dir}, nil
}

var _ repository.SlotRepository = (*SlotRepo)(nil)

func (r *SlotRepo) path(key string) string {
	return filepath.Join(r.dir, url.PathEscape(key)+ext)
}

// Get reads a slot file.
func (r *SlotRepo) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(key)
}

func (r *SlotRepo) read(key string) ([]byte, error) {
	b, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrNotFound
	}
	return b, err
}

// Put replaces a slot file atomically.
func (r *SlotRepo) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(key, value)
}

// write goes through a temp file and rename so readers never see a torn slot.
func (r *SlotRepo) write(key string, value []byte) error {
	tmp, err := os.CreateTemp(r.dir, ".slot-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o600); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, r.path(key)); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

func (r *SlotRepo) remove(key string) error {
	err := os.Remove(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Update reads, transforms and writes a slot under the repository lock.
func (r *SlotRepo) Update(_ context.Context, key string, fn repository.UpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.read(key)
	found := true
	switch {
	case errors.Is(err, errs.ErrNotFound):
		cur, found = nil, false
	case err != nil:
		return err
	}
	next, err := fn(cur, found)
	if err != nil {
		return err
	}
	if next == nil {
		return r.remove(key)
	}
	return r.write(key, next)
}

// Delete removes a slot file.
func (r *SlotRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(key)
}

// Clear removes every slot file in the directory.
func (r *SlotRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		if err := os.Remove(filepath.Join(r.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
