package nativehost

// OfficialChromeExtensionID is the published Chrome extension ID. Empty until
// the extension is listed; install then requires --chrome-extension-id.
const OfficialChromeExtensionID = ""

// OfficialFirefoxExtensionID is the published Firefox add-on ID.
const OfficialFirefoxExtensionID = "restcue@restcue.io"

// HasOfficialExtensions returns true if at least one official extension ID is configured.
// Package manager hooks use this to determine if native host installation should proceed.
func HasOfficialExtensions() bool {
	return OfficialChromeExtensionID != "" || OfficialFirefoxExtensionID != ""
}
