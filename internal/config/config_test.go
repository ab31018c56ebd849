package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/delivery"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != common.DefaultListenAddr {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != filepath.Join(dir, "restcue.db") {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if d, _ := cfg.RetryDelay(); d != delivery.DefaultRetryDelay {
		t.Errorf("RetryDelay = %v", d)
	}
	if cfg.Autostart {
		t.Error("autostart should default to false")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "empty document",
			yaml: "",
			check: func(t *testing.T, c *Config) {
				if c.Log.Level != "info" {
					t.Errorf("Log.Level = %q", c.Log.Level)
				}
			},
		},
		{
			name: "overrides keep untouched defaults",
			yaml: "listen: 127.0.0.1:9000\nrpc:\n  secret: s3cret\nautostart: true\ndelivery:\n  retry_delay: 300ms\n",
			check: func(t *testing.T, c *Config) {
				if c.Listen != "127.0.0.1:9000" || c.RPC.Secret != "s3cret" || !c.Autostart {
					t.Errorf("unexpected config %+v", c)
				}
				if d, _ := c.RetryDelay(); d != 300*time.Millisecond {
					t.Errorf("RetryDelay = %v", d)
				}
				if c.Delivery.Script != delivery.DefaultScript {
					t.Errorf("Script = %q", c.Delivery.Script)
				}
			},
		},
		{
			name: "storage block",
			yaml: "storage:\n  driver: file\n  path: /tmp/x.json\n",
			check: func(t *testing.T, c *Config) {
				if c.Storage.Driver != "file" || c.Storage.Path != "/tmp/x.json" {
					t.Errorf("Storage = %+v", c.Storage)
				}
			},
		},
		{name: "unknown key", yaml: "lisen: x\n", wantErr: true},
		{name: "bad duration", yaml: "delivery:\n  retry_delay: soon\n", wantErr: true},
		{name: "negative duration", yaml: "delivery:\n  retry_delay: -1s\n", wantErr: true},
		{name: "bad level", yaml: "log:\n  level: loud\n", wantErr: true},
		{name: "empty listen", yaml: "listen: \"\"\n", wantErr: true},
		{name: "not yaml", yaml: "listen: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml), "/data")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && err == nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		common.ListenEnv: "0.0.0.0:1",
		common.SecretEnv: "from-env",
		common.DebugEnv:  "1",
	}
	cfg := Default("/data")
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Listen != "0.0.0.0:1" || cfg.RPC.Secret != "from-env" || cfg.Log.Level != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}

	cfg = Default("/data")
	cfg.ApplyEnv(func(k string) string {
		if k == common.DebugEnv {
			return "false"
		}
		return ""
	})
	if cfg.Log.Level != "info" {
		t.Errorf("RESTCUE_DEBUG=false changed level to %q", cfg.Log.Level)
	}
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(common.ConfigPathEnv, "/etc/restcue.yaml")
	p, err := DefaultPath()
	if err != nil || p != "/etc/restcue.yaml" {
		t.Fatalf("DefaultPath() = %q, %v", p, err)
	}
}

func TestDeliveryEngineConfig(t *testing.T) {
	cfg := Default("/data")
	cfg.Delivery.RetryDelay = "1s"
	cfg.Delivery.Stylesheet = "a.css"
	dc := cfg.DeliveryEngineConfig()
	if dc.RetryDelay != time.Second || dc.Stylesheet != "a.css" || dc.Script != delivery.DefaultScript {
		t.Errorf("DeliveryEngineConfig() = %+v", dc)
	}
}

func TestLoadReadError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read.
	p := filepath.Join(dir, "config.yaml")
	if err := os.Mkdir(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatal("expected error reading a directory")
	}
}
