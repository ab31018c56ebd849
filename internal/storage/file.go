package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// fileBackend keeps one JSON document per area:
//
//	<dir>/sync.json
//	<dir>/local.json
//
// Every write rewrites the whole document through a temp file and rename,
// so a crash leaves either the old or the new version on disk.
type fileBackend struct {
	fs  afero.Fs
	dir string

	mu     sync.Mutex
	cache  map[string]map[string]json.RawMessage
	closed bool
}

func openFile(fs afero.Fs, path string) (*fileBackend, error) {
	dir := strings.TrimSpace(path)
	if dir == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &fileBackend{
		fs:    fs,
		dir:   dir,
		cache: make(map[string]map[string]json.RawMessage),
	}, nil
}

func (b *fileBackend) Area(name string) Store {
	return &fileArea{b: b, name: name}
}

func (b *fileBackend) Close() error {
	b.mu.Lock()
	b.closed = true
	b.cache = nil
	b.mu.Unlock()
	return nil
}

func (b *fileBackend) areaPath(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// load returns the cached area, reading it from disk on first use.
// Caller must hold b.mu.
func (b *fileBackend) load(name string) (map[string]json.RawMessage, error) {
	if b.closed {
		return nil, ErrClosed
	}
	if kv, ok := b.cache[name]; ok {
		return kv, nil
	}
	kv := make(map[string]json.RawMessage)
	data, err := afero.ReadFile(b.fs, b.areaPath(name))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", name, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &kv); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	b.cache[name] = kv
	return kv, nil
}

// flush writes the area atomically. Caller must hold b.mu.
func (b *fileBackend) flush(name string, kv map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(kv, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := afero.TempFile(b.fs, b.dir, "."+name+".json.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		b.fs.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		b.fs.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := b.fs.Rename(tmpPath, b.areaPath(name)); err != nil {
		b.fs.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

type fileArea struct {
	b    *fileBackend
	name string
}

func (a *fileArea) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	kv, err := a.b.load(a.name)
	if err != nil {
		return nil, false, err
	}
	v, ok := kv[key]
	return clone(v), ok, nil
}

func (a *fileArea) Set(_ context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("set %s: value is not valid JSON", key)
	}
	return a.mutate(func(kv map[string]json.RawMessage) bool {
		kv[key] = clone(value)
		return true
	})
}

func (a *fileArea) Remove(_ context.Context, key string) error {
	return a.mutate(func(kv map[string]json.RawMessage) bool {
		if _, ok := kv[key]; !ok {
			return false
		}
		delete(kv, key)
		return true
	})
}

func (a *fileArea) Clear(_ context.Context) error {
	return a.mutate(func(kv map[string]json.RawMessage) bool {
		clear(kv)
		return true
	})
}

func (a *fileArea) Update(_ context.Context, key string, fn UpdateFunc) error {
	var fnErr error
	err := a.mutate(func(kv map[string]json.RawMessage) bool {
		old, ok := kv[key]
		next, err := fn(clone(old), ok)
		if err != nil {
			fnErr = err
			return false
		}
		if next == nil {
			return false
		}
		if !json.Valid(next) {
			fnErr = fmt.Errorf("update %s: value is not valid JSON", key)
			return false
		}
		kv[key] = clone(next)
		return true
	})
	if fnErr != nil {
		return fnErr
	}
	return err
}

// mutate applies fn to a copy of the area and persists it when fn reports a
// change; the cache only moves forward once the file is written.
func (a *fileArea) mutate(fn func(kv map[string]json.RawMessage) bool) error {
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	kv, err := a.b.load(a.name)
	if err != nil {
		return err
	}
	next := make(map[string]json.RawMessage, len(kv))
	for k, v := range kv {
		next[k] = v
	}
	if !fn(next) {
		return nil
	}
	if err := a.b.flush(a.name, next); err != nil {
		return err
	}
	a.b.cache[a.name] = next
	return nil
}
