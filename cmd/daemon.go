package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/restcue/restcue/cmd/common"
	"github.com/restcue/restcue/internal/config"
	"github.com/restcue/restcue/internal/daemon"
	"github.com/restcue/restcue/internal/server"
	"github.com/restcue/restcue/pkg/credman"
	"github.com/restcue/restcue/pkg/logger"
	"github.com/urfave/cli"
)

var daemonFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "ephemeral",
		Usage: "keep all state in memory and forget it on exit",
	},
}

// configPath resolves --config, then $RESTCUE_CONFIG, then the user
// config directory.
func configPath(ctx *cli.Context) (string, error) {
	if p := ctx.GlobalString("config"); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}

// resolveSecret returns the RPC secret. A configured secret wins; otherwise
// the keyring or its file fallback is consulted, creating one when create
// is set.
func resolveSecret(cfg *config.Config, dir string, log logger.Logger, create bool) (string, error) {
	if cfg.RPC.Secret != "" {
		return cfg.RPC.Secret, nil
	}
	m := credman.NewDefaultManager(dir, log)
	if !create {
		s, err := m.Get()
		if errors.Is(err, credman.ErrNotFound) {
			return "", errors.New("no RPC secret found; start the daemon once to create it")
		}
		return s, err
	}
	s, created, err := m.Ensure()
	if err != nil {
		return "", err
	}
	if created {
		log.Info("generated a new RPC secret; run 'restcue secret' to show it")
	}
	return s, nil
}

// followConfig applies reloaded config until ctx is done.
func followConfig(ctx context.Context, updates <-chan *config.Config, comps *DaemonComponents, log *daemonLogger, initial *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			log.SetLevel(cfg.Log.Level)
			comps.ApplyConfig(cfg)
			if cfg.Listen != initial.Listen || cfg.Storage != initial.Storage || cfg.RPC != initial.RPC {
				log.Warning("listen, rpc and storage changes take effect after a restart")
			}
		}
	}
}

func runDaemon(ctx *cli.Context) error {
	path, err := configPath(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config", err)
		return err
	}
	mgr := config.NewManager(path, nil)
	cfg, err := mgr.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config", err)
		return err
	}

	log, err := newDaemonLogger(os.Stderr, cfg.Log)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "logger", err)
		return err
	}
	defer log.Close()
	mgr.SetLogger(log)

	secret, err := resolveSecret(cfg, config.DataDir(path), log, true)
	if err != nil {
		log.Error("rpc secret: %v", err)
		return err
	}

	comps, err := initDaemonComponents(cfg, log, ctx.Bool("ephemeral"))
	if err != nil {
		log.Error("init: %v", err)
		return err
	}

	web := server.NewWebServer(log, server.Config{Addr: cfg.Listen, Secret: secret}, comps.Api.Assigner(), comps.Extensions)
	runner := daemon.New(daemon.Config{}, log)
	buildRunner(runner, cfg, mgr, comps, web, log)

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runner.Run(sigCtx)
}

// buildRunner registers the daemon components in start order.
func buildRunner(runner *daemon.Runner, cfg *config.Config, mgr *config.Manager, comps *DaemonComponents, web *server.WebServer, log *daemonLogger) {
	runner.Add(daemon.Component{
		Name:  "session core",
		Start: func(ctx context.Context) error { return comps.Start(ctx, cfg.Autostart) },
		Stop:  func(context.Context) error { return comps.Close() },
	})
	runner.Add(daemon.Component{
		Name: "config watcher",
		Start: func(ctx context.Context) error {
			updates := mgr.Subscribe()
			go mgr.Watch(ctx)
			go followConfig(ctx, updates, comps, log, cfg)
			return nil
		},
	})
	runner.Add(daemon.Component{
		Name: "web server",
		Start: func(ctx context.Context) error {
			if _, err := web.Listen(); err != nil {
				return err
			}
			go func() {
				if err := web.Start(ctx); err != nil {
					log.Error("web server: %v", err)
					_ = runner.Shutdown()
				}
			}()
			return nil
		},
		Stop: web.Shutdown,
	})
}
