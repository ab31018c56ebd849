package cmd

import (
	"context"
	"fmt"

	"github.com/restcue/restcue/internal/api"
	"github.com/restcue/restcue/internal/config"
	"github.com/restcue/restcue/internal/delivery"
	"github.com/restcue/restcue/internal/scheduler"
	"github.com/restcue/restcue/internal/server"
	"github.com/restcue/restcue/internal/session"
	"github.com/restcue/restcue/internal/settings"
	"github.com/restcue/restcue/internal/stats"
	"github.com/restcue/restcue/internal/storage"
	"github.com/restcue/restcue/pkg/logger"
	"github.com/spf13/afero"
)

// DaemonComponents holds the session core shared by the daemon and the
// native messaging host.
type DaemonComponents struct {
	Backend    storage.Backend
	Settings   *settings.Store
	Tracker    *stats.Tracker
	Ticker     *stats.Ticker
	Alarms     *scheduler.Scheduler
	Extensions *server.Extensions
	Delivery   *delivery.Engine
	Session    *session.Engine
	Api        *api.Api

	log    logger.Logger
	cancel context.CancelFunc
}

// openBackend is replaced in tests.
var openBackend = func(cfg storage.Config) (storage.Backend, error) {
	return storage.Open(cfg, afero.NewOsFs())
}

// initDaemonComponents wires the core. Nothing runs until Start.
func initDaemonComponents(cfg *config.Config, log logger.Logger, ephemeral bool) (*DaemonComponents, error) {
	storeCfg := cfg.Storage
	if ephemeral {
		storeCfg = storage.Config{Driver: "memory"}
	}
	backend, err := openBackend(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	local := backend.Area(storage.AreaLocal)
	tracker := stats.NewTracker(local, nil)
	ext := server.NewExtensions(log)
	deliv := delivery.NewEngine(ext, cfg.DeliveryEngineConfig(), log)
	alarms := scheduler.New(ctx, nil)
	store := settings.NewStore(backend.Area(storage.AreaSync))

	eng := session.New(session.Options{
		Settings: store,
		Stats:    tracker,
		Local:    local,
		Alarms:   alarms,
		Delivery: deliv,
		Logger:   log,
	})
	alarms.SetOnFire(func(a scheduler.Alarm) {
		eng.HandleAlarm(ctx, a)
	})

	return &DaemonComponents{
		Backend:    backend,
		Settings:   store,
		Tracker:    tracker,
		Ticker:     stats.NewTicker(tracker, log),
		Alarms:     alarms,
		Extensions: ext,
		Delivery:   deliv,
		Session:    eng,
		Api:        api.NewApi(log, eng, currentVersionInfo()),
		log:        log,
		cancel:     cancel,
	}, nil
}

// Start seeds default settings, restores the session from storage and
// starts the focus tick.
func (c *DaemonComponents) Start(ctx context.Context, autostart bool) error {
	seeded, err := c.Settings.Seed(ctx)
	if err != nil {
		c.log.Warning("seed settings: %v", err)
	} else if seeded {
		c.log.Info("default settings written")
	}
	if err := c.Session.Restore(ctx, autostart); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	return c.Ticker.Start(ctx)
}

// ApplyConfig applies the settings that can change without a restart.
func (c *DaemonComponents) ApplyConfig(cfg *config.Config) {
	d, err := cfg.RetryDelay()
	if err != nil {
		c.log.Warning("ignoring delivery.retry_delay: %v", err)
		return
	}
	c.Delivery.SetRetryDelay(d)
}

// Close stops the tick and the scheduler and closes storage.
func (c *DaemonComponents) Close() error {
	c.Ticker.Stop()
	c.cancel()
	return c.Backend.Close()
}

func currentVersionInfo() api.VersionInfo {
	return api.VersionInfo{
		Version:   currentBuildArgs.Version,
		Commit:    currentBuildArgs.Commit,
		BuildType: currentBuildArgs.BuildType,
	}
}
