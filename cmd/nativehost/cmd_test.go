package nativehost

import (
	"errors"
	"flag"
	"os"
	"runtime"
	"testing"

	nhost "github.com/restcue/restcue/internal/nativehost"
	"github.com/urfave/cli"
)

func sandbox(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("no manifest locations on " + runtime.GOOS)
	}
	dir := t.TempDir()
	origInstaller, origExe := newInstaller, executable
	newInstaller = func(hostPath, chromeID, firefoxID string) *nhost.ManifestInstaller {
		return &nhost.ManifestInstaller{
			HostPath:           hostPath,
			ChromeExtensionID:  chromeID,
			FirefoxExtensionID: firefoxID,
			BaseDir:            dir,
		}
	}
	executable = func() (string, error) { return "/usr/bin/restcue", nil }
	t.Cleanup(func() {
		newInstaller, executable = origInstaller, origExe
	})
	return dir
}

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("native-host", flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(set)
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	app := cli.NewApp()
	app.Name = "restcue"
	return cli.NewContext(app, set, nil)
}

func installedPath(t *testing.T, dir string, b nhost.Browser) string {
	t.Helper()
	return (&nhost.ManifestInstaller{BaseDir: dir}).ManifestPath(b)
}

func TestInstallStatusUninstall(t *testing.T) {
	dir := sandbox(t)

	ctx := newContext(t, installFlags, "--browser", "firefox", "--firefox-extension-id", "cue@example.org")
	if err := install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	ff := installedPath(t, dir, nhost.BrowserFirefox)
	if _, err := os.Stat(ff); err != nil {
		t.Fatalf("firefox manifest missing: %v", err)
	}
	if _, err := os.Stat(installedPath(t, dir, nhost.BrowserChrome)); err == nil {
		t.Fatal("chrome manifest should not be written")
	}

	if err := status(newContext(t, nil)); err != nil {
		t.Fatalf("status: %v", err)
	}

	if err := uninstall(newContext(t, uninstallFlags)); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(ff); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("manifest still present: %v", err)
	}
}

func TestInstallAllSkipsMissingIDs(t *testing.T) {
	dir := sandbox(t)
	ctx := newContext(t, installFlags, "--chrome-extension-id", "abcdefghijklmnopabcdefghijklmnop")
	if err := install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}
	for _, b := range nhost.SupportedBrowsers() {
		_, err := os.Stat(installedPath(t, dir, b))
		if b.IsFirefox() && err == nil {
			t.Errorf("%s installed without an ID", b)
		}
		if !b.IsFirefox() && err != nil {
			t.Errorf("%s not installed: %v", b, err)
		}
	}
}

func TestInstallErrors(t *testing.T) {
	sandbox(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no ids", nil},
		{"unknown browser", []string{"--browser", "netscape", "--chrome-extension-id", "x"}},
		{"id for other browser", []string{"--browser", "firefox", "--chrome-extension-id", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := install(newContext(t, installFlags, tt.args...)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInstallExecutableError(t *testing.T) {
	sandbox(t)
	executable = func() (string, error) { return "", errors.New("no path") }
	if err := install(newContext(t, installFlags, "--firefox-extension-id", "x@y")); err == nil {
		t.Fatal("expected error")
	}
}

func TestInstallAuto(t *testing.T) {
	dir := sandbox(t)
	if err := install(newContext(t, installFlags, "--auto")); err != nil {
		t.Fatalf("install --auto: %v", err)
	}
	_, err := os.Stat(installedPath(t, dir, nhost.BrowserFirefox))
	if nhost.OfficialFirefoxExtensionID != "" && err != nil {
		t.Errorf("auto install did not use the published firefox ID: %v", err)
	}
}

func TestSelectBrowsers(t *testing.T) {
	all, err := selectBrowsers("all")
	if err != nil || len(all) != len(nhost.SupportedBrowsers()) {
		t.Fatalf("all = %v, %v", all, err)
	}
	one, err := selectBrowsers("brave")
	if err != nil || len(one) != 1 || one[0] != nhost.BrowserBrave {
		t.Fatalf("brave = %v, %v", one, err)
	}
	if _, err := selectBrowsers("lynx"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCommandsWiresRun(t *testing.T) {
	called := false
	cmds := Commands(func(*cli.Context) error { called = true; return nil })
	for _, c := range cmds {
		if c.Name == "run" {
			if !c.Hidden {
				t.Error("run should be hidden")
			}
			if err := c.Action.(cli.ActionFunc)(nil); err != nil {
				t.Fatal(err)
			}
		}
	}
	if !called {
		t.Fatal("run action not wired")
	}
}
