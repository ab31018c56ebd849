// Package nativehost provides CLI commands for managing native messaging host integration.
package nativehost

import (
	"strings"

	nhost "github.com/restcue/restcue/internal/nativehost"
	"github.com/urfave/cli"
)

// Commands returns the native-host subcommands. run serves the protocol
// when the browser starts the host.
func Commands(run cli.ActionFunc) []cli.Command {
	return []cli.Command{
		{
			Name:   "install",
			Action: install,
			Usage:  "install native messaging manifest for browsers",
			Flags:  installFlags,
		},
		{
			Name:   "uninstall",
			Action: uninstall,
			Usage:  "remove native messaging manifest from browsers",
			Flags:  uninstallFlags,
		},
		{
			Name:   "run",
			Action: run,
			Usage:  "run native messaging host (called by browser)",
			Hidden: true,
		},
		{
			Name:   "status",
			Action: status,
			Usage:  "show installation status for all browsers",
		},
	}
}

func browserUsage(verb string) string {
	names := []string{}
	for _, b := range nhost.SupportedBrowsers() {
		names = append(names, string(b))
	}
	return "browser to " + verb + " (" + strings.Join(names, ", ") + ", all)"
}

var installFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "browser",
		Usage: browserUsage("install for"),
		Value: "all",
	},
	cli.StringFlag{
		Name:  "chrome-extension-id",
		Usage: "Chrome extension ID (required for Chrome-based browsers)",
	},
	cli.StringFlag{
		Name:  "firefox-extension-id",
		Usage: "Firefox extension ID (required for Firefox)",
	},
	cli.BoolFlag{
		Name:  "auto",
		Usage: "use the published extension IDs (for package manager hooks)",
	},
}

var uninstallFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "browser",
		Usage: browserUsage("uninstall from"),
		Value: "all",
	},
}

// selectBrowsers expands the --browser value.
func selectBrowsers(name string) ([]nhost.Browser, error) {
	if name == "all" {
		return nhost.SupportedBrowsers(), nil
	}
	b, err := nhost.ParseBrowser(name)
	if err != nil {
		return nil, err
	}
	return []nhost.Browser{b}, nil
}

// newInstaller is replaced in tests.
var newInstaller = func(hostPath, chromeID, firefoxID string) *nhost.ManifestInstaller {
	return &nhost.ManifestInstaller{
		HostPath:           hostPath,
		ChromeExtensionID:  chromeID,
		FirefoxExtensionID: firefoxID,
	}
}
