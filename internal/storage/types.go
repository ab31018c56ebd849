package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// Area names.
const (
	AreaSync  = "sync"
	AreaLocal = "local"
)

// ErrClosed is returned by every operation on a closed backend.
var ErrClosed = errors.New("storage: closed")

// UpdateFunc receives the current value (ok=false when absent) and returns
// the replacement. Returning a nil value leaves the key untouched.
type UpdateFunc func(old json.RawMessage, ok bool) (json.RawMessage, error)

// Store is a single key/value area.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// Update runs fn atomically with respect to other writers of the same
	// area. fn must not call back into the store.
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// Backend owns the areas of one storage driver.
type Backend interface {
	Area(name string) Store
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Open initializes the configured backend. fs is only used by the file
// driver; nil means the OS filesystem.
func Open(cfg Config, fs afero.Fs) (Backend, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		return openSQLite(cfg.Path)
	case "file", "json":
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return openFile(fs, cfg.Path)
	case "memory", "mem":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

// GetJSON decodes key into out. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, out any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// UpdateJSON decodes the current value of key into a T, lets fn mutate it,
// and writes it back atomically. A value that fails to decode is handed to
// fn as absent.
func UpdateJSON[T any](ctx context.Context, s Store, key string, fn func(v *T, ok bool) error) (T, error) {
	var result T
	err := s.Update(ctx, key, func(old json.RawMessage, ok bool) (json.RawMessage, error) {
		var v T
		if ok {
			if err := json.Unmarshal(old, &v); err != nil {
				v, ok = *new(T), false
			}
		}
		if err := fn(&v, ok); err != nil {
			return nil, err
		}
		result = v
		return json.Marshal(v)
	})
	return result, err
}
