package config

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/restcue/restcue/pkg/logger"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

const (
	restartBackoffBase = 250 * time.Millisecond
	restartBackoffMax  = 5 * time.Second
)

// Manager holds the current config and republishes it when the file
// changes on disk.
type Manager struct {
	path     string
	log      logger.Logger
	debounce time.Duration
	getenv   func(string) string

	mu  sync.RWMutex
	cfg *Config

	subsMu sync.Mutex
	subs   []chan *Config
}

func NewManager(path string, l logger.Logger) *Manager {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Manager{path: path, log: l, debounce: DefaultDebounce}
}

// SetLogger replaces the logger once the real one has been built from the
// loaded config.
func (m *Manager) SetLogger(l logger.Logger) {
	if l != nil {
		m.log = l
	}
}

func (m *Manager) Path() string { return m.path }

func (m *Manager) parse() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(m.getenv)
	return cfg, nil
}

// Load reads the file, applies environment overrides and commits the result.
func (m *Manager) Load() (*Config, error) {
	cfg, err := m.parse()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Subscribe returns a channel that receives each newly committed config.
// A slow subscriber only ever sees the latest one.
func (m *Manager) Subscribe() <-chan *Config {
	ch := make(chan *Config, 1)
	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()
	return ch
}

func (m *Manager) publish(cfg *Config) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- cfg:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- cfg:
			default:
			}
		}
	}
}

// reload parses the file and publishes it if it differs from the current
// config. A broken file keeps the previous config.
func (m *Manager) reload() {
	cfg, err := m.parse()
	if err != nil {
		m.log.Warning("config reload failed, keeping previous: %v", err)
		return
	}
	m.mu.Lock()
	unchanged := m.cfg != nil && reflect.DeepEqual(*m.cfg, *cfg)
	if !unchanged {
		m.cfg = cfg
	}
	m.mu.Unlock()
	if unchanged {
		m.log.Debug("config unchanged, skipping publish")
		return
	}
	m.log.Info("config reloaded from %s", m.path)
	m.publish(cfg)
}

// Watch follows the config file until ctx is done. The directory is watched
// so that editors replacing the file are seen. A failed watcher is
// recreated with backoff.
func (m *Manager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(m.debounce, m.reload)
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	backoff := restartBackoffBase
	wait := func() bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, restartBackoffMax)
		return true
	}

	for ctx.Err() == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			m.log.Warning("config watch init failed: %v", err)
			if !wait() {
				return nil
			}
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			m.log.Warning("config watch %s failed: %v", dir, err)
			if !wait() {
				return nil
			}
			continue
		}
		backoff = restartBackoffBase
		m.log.Debug("watching %s for changes", m.path)

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				w.Close()
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					broken = true
					break
				}
				if strings.EqualFold(filepath.Base(ev.Name), file) &&
					ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule()
				}
			case err, ok := <-w.Errors:
				if !ok {
					broken = true
					break
				}
				if err == fsnotify.ErrEventOverflow {
					m.log.Warning("config watch overflow, forcing reload")
					schedule()
					continue
				}
				m.log.Warning("config watch error: %v", err)
			}
		}
		w.Close()
		if !wait() {
			return nil
		}
	}
	return nil
}
