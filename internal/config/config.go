// Package config loads the daemon's YAML configuration and watches it for
// changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/restcue/restcue/common"
	"github.com/restcue/restcue/internal/delivery"
	"github.com/restcue/restcue/internal/storage"
	yaml "go.yaml.in/yaml/v3"
)

const (
	appDir   = "restcue"
	fileName = "config.yaml"
)

type Config struct {
	Listen    string         `yaml:"listen"`
	RPC       RPCConfig      `yaml:"rpc"`
	Log       LogConfig      `yaml:"log"`
	Storage   storage.Config `yaml:"storage"`
	Delivery  DeliveryConfig `yaml:"delivery"`
	Autostart bool           `yaml:"autostart"`
}

type RPCConfig struct {
	// Secret overrides the keyring-held bearer token when non-empty.
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File receives JSON lines in addition to the console when set.
	File string `yaml:"file"`
}

// DeliveryConfig uses Go duration strings ("150ms").
type DeliveryConfig struct {
	RetryDelay string `yaml:"retry_delay"`
	Stylesheet string `yaml:"stylesheet"`
	Script     string `yaml:"script"`
}

// Default returns the configuration used when no file exists. dataDir
// holds the database.
func Default(dataDir string) *Config {
	return &Config{
		Listen: common.DefaultListenAddr,
		Log:    LogConfig{Level: "info"},
		Storage: storage.Config{
			Driver: "sqlite",
			Path:   filepath.Join(dataDir, "restcue.db"),
		},
		Delivery: DeliveryConfig{
			RetryDelay: delivery.DefaultRetryDelay.String(),
			Stylesheet: delivery.DefaultStylesheet,
			Script:     delivery.DefaultScript,
		},
	}
}

// DefaultPath returns $RESTCUE_CONFIG or <user config dir>/restcue/config.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(common.ConfigPathEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config: locate user config dir: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// DataDir returns the directory that holds the config file, used for
// defaults that live next to it.
func DataDir(path string) string {
	return filepath.Dir(path)
}

// Parse decodes data over the defaults. Unknown keys are rejected.
func Parse(data []byte, dataDir string) (*Config, error) {
	cfg := Default(dataDir)
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(DataDir(path)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, DataDir(path))
}

// Validate rejects values the daemon cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("config: listen: empty address")
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// RetryDelay parses delivery.retry_delay; empty or zero means the default.
func (c *Config) RetryDelay() (time.Duration, error) {
	return ParseDurationOrDefault("delivery.retry_delay", c.Delivery.RetryDelay, delivery.DefaultRetryDelay)
}

// DeliveryEngineConfig converts the delivery block for delivery.NewEngine.
func (c *Config) DeliveryEngineConfig() delivery.Config {
	d, _ := c.RetryDelay()
	return delivery.Config{
		RetryDelay: d,
		Stylesheet: c.Delivery.Stylesheet,
		Script:     c.Delivery.Script,
	}
}

// ApplyEnv overlays RESTCUE_LISTEN, RESTCUE_SECRET and RESTCUE_DEBUG.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(common.ListenEnv); v != "" {
		c.Listen = v
	}
	if v := getenv(common.SecretEnv); v != "" {
		c.RPC.Secret = v
	}
	if v := getenv(common.DebugEnv); v != "" {
		if on, err := strconv.ParseBool(v); err != nil || on {
			c.Log.Level = "debug"
		}
	}
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s: duration must be >= 0", path)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
