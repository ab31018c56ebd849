package nativehost

import (
	"fmt"

	"github.com/urfave/cli"
)

func uninstall(c *cli.Context) error {
	browsers, err := selectBrowsers(c.String("browser"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	installer := newInstaller("", "", "")

	failed := false
	for _, b := range browsers {
		path, err := installer.Uninstall(b)
		switch {
		case err != nil:
			failed = true
			fmt.Printf("%s: %v\n", b, err)
		case path != "":
			fmt.Printf("%s: removed %s\n", b, path)
		}
	}
	if failed {
		return cli.NewExitError("uninstall failed", 1)
	}
	return nil
}
