package nativehost

import (
	"fmt"
	"os"

	nhost "github.com/restcue/restcue/internal/nativehost"
	"github.com/urfave/cli"
)

var executable = os.Executable

func install(c *cli.Context) error {
	chromeID := c.String("chrome-extension-id")
	firefoxID := c.String("firefox-extension-id")
	if c.Bool("auto") {
		if !nhost.HasOfficialExtensions() {
			fmt.Println("No published extension IDs; skipping native host installation.")
			return nil
		}
		if chromeID == "" {
			chromeID = nhost.OfficialChromeExtensionID
		}
		if firefoxID == "" {
			firefoxID = nhost.OfficialFirefoxExtensionID
		}
	}
	if chromeID == "" && firefoxID == "" {
		return cli.NewExitError("at least one extension ID is required (--chrome-extension-id or --firefox-extension-id)", 1)
	}

	browsers, err := selectBrowsers(c.String("browser"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	hostPath, err := executable()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to get executable path: %v", err), 1)
	}
	installer := newInstaller(hostPath, chromeID, firefoxID)

	var installed, failed []string
	for _, b := range browsers {
		// Skip browsers whose extension ID was not given.
		if (b.IsFirefox() && firefoxID == "") || (!b.IsFirefox() && chromeID == "") {
			continue
		}
		path, err := installer.Install(b)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", b, err))
			continue
		}
		installed = append(installed, fmt.Sprintf("%s: %s", b, path))
	}

	if len(installed) > 0 {
		fmt.Println("Installed manifests:")
		for _, m := range installed {
			fmt.Printf("  %s\n", m)
		}
	}
	if len(failed) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range failed {
			fmt.Printf("  %s\n", e)
		}
		if len(installed) == 0 {
			return cli.NewExitError("installation failed", 1)
		}
	}
	if len(installed) == 0 && len(failed) == 0 {
		return cli.NewExitError("no browser matched the given extension IDs", 1)
	}
	return nil
}
