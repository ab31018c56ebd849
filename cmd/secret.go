package cmd

import (
	"fmt"

	"github.com/restcue/restcue/cmd/common"
	"github.com/restcue/restcue/internal/config"
	"github.com/restcue/restcue/pkg/credman"
	"github.com/restcue/restcue/pkg/logger"
	"github.com/urfave/cli"
)

var secretFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "rotate",
		Usage: "replace the stored token; connected extensions must be updated",
	},
}

// newSecretManager is replaced in tests.
var newSecretManager = func(dir string) *credman.Manager {
	return credman.NewDefaultManager(dir, logger.NewNopLogger())
}

func secretCmd(ctx *cli.Context) error {
	path, err := configPath(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "secret", "config", err)
		return cli.NewExitError("", 1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		common.PrintRuntimeErr(ctx, "secret", "config", err)
		return cli.NewExitError("", 1)
	}
	cfg.ApplyEnv(nil)
	if cfg.RPC.Secret != "" {
		if ctx.Bool("rotate") {
			common.PrintRuntimeErr(ctx, "secret", "rotate", fmt.Errorf("secret is set in %s; edit it there", path))
			return cli.NewExitError("", 1)
		}
		fmt.Println(cfg.RPC.Secret)
		return nil
	}

	m := newSecretManager(config.DataDir(path))
	var secret string
	if ctx.Bool("rotate") {
		secret, err = m.Rotate()
	} else {
		secret, _, err = m.Ensure()
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "secret", "keyring", err)
		return cli.NewExitError("", 1)
	}
	fmt.Println(secret)
	if ctx.Bool("rotate") {
		fmt.Println(common.Success("secret rotated; restart the daemon to use it"))
	}
	return nil
}
