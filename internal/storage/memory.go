package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process backend used by tests and ephemeral runs.
type Memory struct {
	mu     sync.Mutex
	areas  map[string]map[string]json.RawMessage
	closed bool
}

func NewMemory() *Memory {
	return &Memory{areas: make(map[string]map[string]json.RawMessage)}
}

func (m *Memory) Area(name string) Store {
	return &memoryArea{m: m, name: name}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

type memoryArea struct {
	m    *Memory
	name string
}

// lockedArea returns the area map with m.mu held.
func (a *memoryArea) lockedArea() (map[string]json.RawMessage, error) {
	a.m.mu.Lock()
	if a.m.closed {
		a.m.mu.Unlock()
		return nil, ErrClosed
	}
	kv, ok := a.m.areas[a.name]
	if !ok {
		kv = make(map[string]json.RawMessage)
		a.m.areas[a.name] = kv
	}
	return kv, nil
}

func (a *memoryArea) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	kv, err := a.lockedArea()
	if err != nil {
		return nil, false, err
	}
	defer a.m.mu.Unlock()
	v, ok := kv[key]
	return clone(v), ok, nil
}

func (a *memoryArea) Set(_ context.Context, key string, value json.RawMessage) error {
	kv, err := a.lockedArea()
	if err != nil {
		return err
	}
	defer a.m.mu.Unlock()
	kv[key] = clone(value)
	return nil
}

func (a *memoryArea) Remove(_ context.Context, key string) error {
	kv, err := a.lockedArea()
	if err != nil {
		return err
	}
	defer a.m.mu.Unlock()
	delete(kv, key)
	return nil
}

func (a *memoryArea) Clear(_ context.Context) error {
	kv, err := a.lockedArea()
	if err != nil {
		return err
	}
	defer a.m.mu.Unlock()
	clear(kv)
	return nil
}

func (a *memoryArea) Update(_ context.Context, key string, fn UpdateFunc) error {
	kv, err := a.lockedArea()
	if err != nil {
		return err
	}
	defer a.m.mu.Unlock()
	old, ok := kv[key]
	next, err := fn(clone(old), ok)
	if err != nil || next == nil {
		return err
	}
	kv[key] = clone(next)
	return nil
}

func clone(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	return append(json.RawMessage(nil), v...)
}
