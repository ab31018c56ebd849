package settings

import (
	"context"
	"encoding/json"

	"github.com/restcue/restcue/internal/storage"
)

// Store reads and writes the settings bundle in a storage area.
type Store struct {
	area storage.Store
}

func NewStore(area storage.Store) *Store {
	return &Store{area: area}
}

// Raw returns the stored bundle as-is. A missing or corrupt bundle reads
// as empty.
func (s *Store) Raw(ctx context.Context) (Patch, error) {
	raw, ok, err := s.area.Get(ctx, Key)
	if err != nil {
		return nil, err
	}
	p := Patch{}
	if ok {
		if err := json.Unmarshal(raw, &p); err != nil || p == nil {
			p = Patch{}
		}
	}
	return p, nil
}

// Load returns the defaults-merged settings. On a storage error the
// defaults are returned together with the error.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	return s.Effective(ctx, nil)
}

// Effective overlays override on the stored bundle without persisting it.
func (s *Store) Effective(ctx context.Context, override Patch) (Settings, error) {
	p, err := s.Raw(ctx)
	if err != nil {
		return Decode(override), err
	}
	return Decode(Merge(p, override)), nil
}

// Update merges patch into the stored bundle and returns the result.
func (s *Store) Update(ctx context.Context, patch Patch) (Settings, error) {
	merged, err := storage.UpdateJSON(ctx, s.area, Key, func(p *Patch, _ bool) error {
		*p = Merge(*p, patch)
		return nil
	})
	if err != nil {
		return Default(), err
	}
	return Decode(merged), nil
}

// Seed writes the full default bundle when nothing is stored yet.
func (s *Store) Seed(ctx context.Context) (bool, error) {
	seeded := false
	_, err := storage.UpdateJSON(ctx, s.area, Key, func(p *Patch, ok bool) error {
		if ok && len(*p) > 0 {
			return nil
		}
		raw, err := json.Marshal(Default())
		if err != nil {
			return err
		}
		seeded = true
		return json.Unmarshal(raw, p)
	})
	return seeded, err
}
