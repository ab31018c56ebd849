package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/restcue/restcue/pkg/logger"
)

func newTestManager(t *testing.T, content string) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	m := NewManager(path, logger.NewMockLogger())
	m.debounce = 20 * time.Millisecond
	m.getenv = func(string) string { return "" }
	return m, path
}

func TestManagerLoadAndReload(t *testing.T) {
	m, path := newTestManager(t, "log:\n  level: info\n")
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe()

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload()

	select {
	case cfg := <-sub:
		if cfg.Log.Level != "debug" {
			t.Errorf("published level %q", cfg.Log.Level)
		}
	default:
		t.Fatal("expected a published config")
	}
	if m.Get().Log.Level != "debug" {
		t.Errorf("Get().Log.Level = %q", m.Get().Log.Level)
	}

	// Same content publishes nothing.
	m.reload()
	select {
	case <-sub:
		t.Fatal("unchanged config was published")
	default:
	}
}

func TestManagerReloadKeepsPreviousOnError(t *testing.T) {
	m, path := newTestManager(t, "listen: 127.0.0.1:1\n")
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe()
	if err := os.WriteFile(path, []byte("listen: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload()

	if m.Get().Listen != "127.0.0.1:1" {
		t.Errorf("config replaced by broken file: %+v", m.Get())
	}
	select {
	case <-sub:
		t.Fatal("broken config was published")
	default:
	}
	if len(m.log.(*logger.MockLogger).Warnings()) == 0 {
		t.Error("expected a warning")
	}
}

func TestManagerSlowSubscriberGetsLatest(t *testing.T) {
	m, _ := newTestManager(t, "")
	sub := m.Subscribe()
	a, b := Default("/a"), Default("/b")
	m.publish(a)
	m.publish(b)
	if got := <-sub; got != b {
		t.Fatal("subscriber should see the latest config")
	}
}

func TestManagerWatch(t *testing.T) {
	m, path := newTestManager(t, "autostart: false\n")
	if _, err := m.Load(); err != nil {
		t.Fatal(err)
	}
	sub := m.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// The watcher may not be armed yet; keep rewriting until it reacts.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := os.WriteFile(path, []byte("autostart: true\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case cfg := <-sub:
			if !cfg.Autostart {
				t.Fatalf("published %+v", cfg)
			}
			return
		case <-time.After(100 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("watch never published the change")
		}
	}
}
