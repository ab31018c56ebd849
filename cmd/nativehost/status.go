package nativehost

import (
	"fmt"

	"github.com/restcue/restcue/cmd/common"
	nhost "github.com/restcue/restcue/internal/nativehost"
	"github.com/urfave/cli"
)

func status(c *cli.Context) error {
	installer := newInstaller("", "", "")
	installed := installer.Installed()

	fmt.Println(common.Title("Native Messaging Host Status"))
	fmt.Printf("Host Name: %s\n\n", nhost.HostName)
	for _, b := range nhost.SupportedBrowsers() {
		if path, ok := installed[b]; ok {
			fmt.Printf("%s: %s\n", b, common.Success("Installed"))
			fmt.Printf("  Path: %s\n", path)
			continue
		}
		fmt.Printf("%s: Not installed\n", b)
	}
	return nil
}
