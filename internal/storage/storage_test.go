package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

type backendFactory struct {
	name string
	open func(t *testing.T) Backend
}

func factories() []backendFactory {
	return []backendFactory{
		{"memory", func(t *testing.T) Backend { return NewMemory() }},
		{"file", func(t *testing.T) Backend {
			b, err := Open(Config{Driver: "file", Path: "/state"}, afero.NewMemMapFs())
			if err != nil {
				t.Fatalf("open file backend: %v", err)
			}
			return b
		}},
		{"sqlite", func(t *testing.T) Backend {
			b, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "restcue.db")}, nil)
			if err != nil {
				t.Fatalf("open sqlite backend: %v", err)
			}
			return b
		}},
	}
}

func TestBackends_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t)
			defer b.Close()
			s := b.Area(AreaLocal)

			if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
			}
			if err := s.Set(ctx, "nextFocusEnd", json.RawMessage(`1700000000000`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := s.Get(ctx, "nextFocusEnd")
			if err != nil || !ok || string(v) != "1700000000000" {
				t.Fatalf("Get = %s ok=%v err=%v", v, ok, err)
			}
			if err := s.Remove(ctx, "nextFocusEnd"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "nextFocusEnd"); ok {
				t.Fatal("expected key removed")
			}
		})
	}
}

func TestBackends_AreasAreIsolated(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t)
			defer b.Close()
			if err := SetJSON(ctx, b.Area(AreaSync), "settings", map[string]int{"intervalMinutes": 5}); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := b.Area(AreaLocal).Get(ctx, "settings"); ok {
				t.Fatal("key leaked across areas")
			}
			if err := b.Area(AreaLocal).Clear(ctx); err != nil {
				t.Fatal(err)
			}
			if _, ok, _ := b.Area(AreaSync).Get(ctx, "settings"); !ok {
				t.Fatal("Clear removed keys of another area")
			}
		})
	}
}

func TestBackends_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t)
			defer b.Close()
			s := b.Area(AreaLocal)

			const workers, perWorker = 4, 25
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						_, err := UpdateJSON(ctx, s, "counter", func(v *int, _ bool) error {
							*v++
							return nil
						})
						if err != nil {
							t.Errorf("UpdateJSON: %v", err)
							return
						}
					}
				}()
			}
			wg.Wait()

			var got int
			if _, err := GetJSON(ctx, s, "counter", &got); err != nil {
				t.Fatal(err)
			}
			if got != workers*perWorker {
				t.Fatalf("counter = %d, want %d", got, workers*perWorker)
			}
		})
	}
}

func TestBackends_UpdateErrorLeavesValue(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t)
			defer b.Close()
			s := b.Area(AreaLocal)
			if err := SetJSON(ctx, s, "k", 1); err != nil {
				t.Fatal(err)
			}
			err := s.Update(ctx, "k", func(json.RawMessage, bool) (json.RawMessage, error) {
				return nil, boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("Update err = %v, want boom", err)
			}
			var got int
			GetJSON(ctx, s, "k", &got)
			if got != 1 {
				t.Fatalf("value changed to %d after failed update", got)
			}
		})
	}
}

func TestBackends_ClosedReturnsErrClosed(t *testing.T) {
	ctx := context.Background()
	for _, f := range factories() {
		t.Run(f.name, func(t *testing.T) {
			b := f.open(t)
			s := b.Area(AreaLocal)
			if err := b.Close(); err != nil {
				t.Fatal(err)
			}
			if _, _, err := s.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
				t.Fatalf("Get after Close = %v", err)
			}
			if err := s.Set(ctx, "k", json.RawMessage(`1`)); !errors.Is(err, ErrClosed) {
				t.Fatalf("Set after Close = %v", err)
			}
		})
	}
}

func TestFileBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	b, err := Open(Config{Driver: "file", Path: "/state"}, fs)
	if err != nil {
		t.Fatal(err)
	}
	if err := SetJSON(ctx, b.Area(AreaLocal), "nextRestEnd", 42); err != nil {
		t.Fatal(err)
	}
	b.Close()

	if ok, _ := afero.Exists(fs, "/state/local.json"); !ok {
		t.Fatal("expected /state/local.json on disk")
	}

	b2, err := Open(Config{Driver: "file", Path: "/state"}, fs)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()
	var got int
	if ok, err := GetJSON(ctx, b2.Area(AreaLocal), "nextRestEnd", &got); err != nil || !ok || got != 42 {
		t.Fatalf("reopened value = %d ok=%v err=%v", got, ok, err)
	}
}

func TestFileBackend_RejectsInvalidJSON(t *testing.T) {
	b, err := Open(Config{Driver: "file", Path: "/state"}, afero.NewMemMapFs())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Area(AreaLocal).Set(context.Background(), "k", json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "redis"}, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, afero.NewMemMapFs()); err == nil {
		t.Fatal("expected error for file driver without path")
	}
}

func TestUpdateJSON_CorruptValueTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Area(AreaLocal)
	if err := s.Set(ctx, "dailyStats", json.RawMessage(`"not an object"`)); err != nil {
		t.Fatal(err)
	}
	type rec struct{ N int }
	got, err := UpdateJSON(ctx, s, "dailyStats", func(v *rec, ok bool) error {
		if ok {
			t.Error("corrupt value reported as present")
		}
		v.N = 7
		return nil
	})
	if err != nil || got.N != 7 {
		t.Fatalf("UpdateJSON = %+v, %v", got, err)
	}
}
