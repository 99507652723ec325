// Package device derives human-readable device display names from raw
// user-agent strings. The raw string is what gets persisted; the display name
// is for logs and audit trails.
package device

import "github.com/mssola/useragent"

// ParseUserAgent turns a user-agent string into a "Browser on OS" display
// name. Unknown parts degrade to readable placeholders rather than empty
// strings.
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	// Mobile platforms (iPhone, iPad, Android handsets) are more recognizable
	// than their OS strings.
	switch platform := ua.Platform(); platform {
	case "", "Windows", "Macintosh", "X11":
	default:
		os = platform
	}
	if os == "" {
		os = "Unknown OS"
	}

	return browser + " on " + os
}
