package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/restcue/restcue/internal/config"
	nhost "github.com/restcue/restcue/internal/nativehost"
	"github.com/urfave/cli"
)

// runNativeHost is started by the browser. It runs the session core in
// process and speaks JSON-RPC over stdio; diagnostics go to stderr, which
// the browser captures.
func runNativeHost(ctx *cli.Context) error {
	path, err := configPath(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "native host: %v\n", err)
		return cli.NewExitError("native host: config", 1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "native host: %v\n", err)
		return cli.NewExitError("native host: config", 1)
	}
	cfg.ApplyEnv(nil)

	log, err := newDaemonLogger(os.Stderr, cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "native host: %v\n", err)
		return cli.NewExitError("native host: logger", 1)
	}
	defer log.Close()

	comps, err := initDaemonComponents(cfg, log, false)
	if err != nil {
		log.Error("native host init: %v", err)
		return cli.NewExitError("native host: init", 1)
	}
	defer comps.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := comps.Start(sigCtx, cfg.Autostart); err != nil {
		log.Error("native host start: %v", err)
		return cli.NewExitError("native host: start", 1)
	}
	host := nhost.NewHost(comps.Api.Assigner(), comps.Extensions, log)
	if err := host.Run(sigCtx); err != nil {
		log.Error("native host: %v", err)
		return cli.NewExitError("native host error", 1)
	}
	return nil
}
