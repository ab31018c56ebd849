package nativehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// HostName is the native messaging host identifier. The extension passes it
// to connectNative, so it must match the "name" field of every manifest.
const HostName = "io.restcue.host"

const hostDescription = "restcue break reminder bridge"

// Browser represents a supported browser for native messaging.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserFirefox  Browser = "firefox"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
)

// SupportedBrowsers returns all browsers that support native messaging.
func SupportedBrowsers() []Browser {
	return []Browser{BrowserChrome, BrowserFirefox, BrowserChromium, BrowserEdge, BrowserBrave}
}

// ParseBrowser maps a command line name onto a Browser.
func ParseBrowser(name string) (Browser, error) {
	for _, b := range SupportedBrowsers() {
		if string(b) == name {
			return b, nil
		}
	}
	return "", fmt.Errorf("unknown browser %q", name)
}

// IsFirefox reports whether b uses the Firefox manifest flavour.
func (b Browser) IsFirefox() bool {
	return b == BrowserFirefox
}

// ChromeManifest is the Chromium family manifest.
type ChromeManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// FirefoxManifest is the Gecko manifest.
type FirefoxManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// GenerateChromeManifest creates a Chrome/Chromium native messaging manifest.
func GenerateChromeManifest(hostPath, extensionID string) []byte {
	b, _ := json.MarshalIndent(ChromeManifest{
		Name:           HostName,
		Description:    hostDescription,
		Path:           hostPath,
		Type:           "stdio",
		AllowedOrigins: []string{"chrome-extension://" + extensionID + "/"},
	}, "", "  ")
	return b
}

// GenerateFirefoxManifest creates a Firefox native messaging manifest.
func GenerateFirefoxManifest(hostPath, extensionID string) []byte {
	b, _ := json.MarshalIndent(FirefoxManifest{
		Name:              HostName,
		Description:       hostDescription,
		Path:              hostPath,
		Type:              "stdio",
		AllowedExtensions: []string{extensionID},
	}, "", "  ")
	return b
}

// getManifestPath returns the manifest file path for a given browser and platform.
func getManifestPath(browser Browser, platform, homeDir string) string {
	file := HostName + ".json"

	switch platform {
	case "darwin":
		support := filepath.Join(homeDir, "Library", "Application Support")
		switch browser {
		case BrowserChrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts", file)
		case BrowserChromium:
			return filepath.Join(support, "Chromium", "NativeMessagingHosts", file)
		case BrowserFirefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts", file)
		case BrowserEdge:
			return filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts", file)
		case BrowserBrave:
			return filepath.Join(support, "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", file)
		}
	case "linux":
		switch browser {
		case BrowserChrome:
			return filepath.Join(homeDir, ".config", "google-chrome", "NativeMessagingHosts", file)
		case BrowserChromium:
			return filepath.Join(homeDir, ".config", "chromium", "NativeMessagingHosts", file)
		case BrowserFirefox:
			return filepath.Join(homeDir, ".mozilla", "native-messaging-hosts", file)
		case BrowserEdge:
			return filepath.Join(homeDir, ".config", "microsoft-edge", "NativeMessagingHosts", file)
		case BrowserBrave:
			return filepath.Join(homeDir, ".config", "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", file)
		}
	case "windows":
		// Browsers locate the file through a registry key pointing here.
		return filepath.Join(homeDir, "AppData", "Local", "restcue", string(browser), file)
	}
	return ""
}

// detectPlatform returns the current OS platform. Tests replace it.
var detectPlatform = func() string {
	return runtime.GOOS
}

// ManifestInstaller writes and removes native messaging manifests.
type ManifestInstaller struct {
	HostPath           string
	ChromeExtensionID  string
	FirefoxExtensionID string
	// BaseDir replaces the user's home directory when set.
	BaseDir string
}

// Validate checks that the fields needed for browser are set.
func (m *ManifestInstaller) Validate(browser Browser) error {
	if m.HostPath == "" {
		return errors.New("host path is required")
	}
	if browser.IsFirefox() {
		if m.FirefoxExtensionID == "" {
			return errors.New("firefox extension ID is required")
		}
		return nil
	}
	if m.ChromeExtensionID == "" {
		return errors.New("chrome extension ID is required")
	}
	return nil
}

func (m *ManifestInstaller) homeDir() string {
	if m.BaseDir != "" {
		return m.BaseDir
	}
	home, _ := os.UserHomeDir()
	return home
}

// ManifestPath returns where the manifest for browser lives on this
// platform, or "" when the combination is unsupported.
func (m *ManifestInstaller) ManifestPath(browser Browser) string {
	return getManifestPath(browser, detectPlatform(), m.homeDir())
}

// Install writes the manifest for browser and returns its path.
func (m *ManifestInstaller) Install(browser Browser) (string, error) {
	if err := m.Validate(browser); err != nil {
		return "", err
	}
	path := m.ManifestPath(browser)
	if path == "" {
		return "", fmt.Errorf("unsupported browser/platform: %s/%s", browser, detectPlatform())
	}

	var manifest []byte
	if browser.IsFirefox() {
		manifest = GenerateFirefoxManifest(m.HostPath, m.FirefoxExtensionID)
	} else {
		manifest = GenerateChromeManifest(m.HostPath, m.ChromeExtensionID)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, manifest, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Uninstall removes the manifest for browser. A missing file is not an error.
func (m *ManifestInstaller) Uninstall(browser Browser) (string, error) {
	path := m.ManifestPath(browser)
	if path == "" {
		return "", nil
	}
	return path, UninstallManifest(path)
}

// Installed reports the browsers whose manifest file exists.
func (m *ManifestInstaller) Installed() map[Browser]string {
	out := make(map[Browser]string)
	for _, b := range SupportedBrowsers() {
		p := m.ManifestPath(b)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			out[b] = p
		}
	}
	return out
}

// UninstallManifest removes a manifest file.
func UninstallManifest(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
