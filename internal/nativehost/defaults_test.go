package nativehost

import "testing"

func TestHasOfficialExtensions(t *testing.T) {
	want := OfficialChromeExtensionID != "" || OfficialFirefoxExtensionID != ""
	if got := HasOfficialExtensions(); got != want {
		t.Errorf("HasOfficialExtensions() = %v, want %v", got, want)
	}
}

func TestOfficialFirefoxIDInstallable(t *testing.T) {
	if OfficialFirefoxExtensionID == "" {
		t.Skip("no official Firefox add-on ID")
	}
	m := &ManifestInstaller{HostPath: "/usr/bin/restcue", FirefoxExtensionID: OfficialFirefoxExtensionID}
	if err := m.Validate(BrowserFirefox); err != nil {
		t.Errorf("Validate(firefox) with official ID: %v", err)
	}
}
