// Package device turns raw User-Agent strings into short display names for
// security logging ("Chrome on Linux"), so registration logs stay readable
// without storing the full UA string.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// DisplayName derives a human-readable device description from a User-Agent.
// Unknown or empty agents come back as "Unknown Device".
func DisplayName(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)

	browser, _ := ua.Browser()
	platform := ua.Platform()
	os := ua.OSInfo().Name

	if browser == "" {
		// Non-browser clients (SDKs, curl) report their product token.
		if i := strings.IndexAny(rawUA, "/ "); i > 0 {
			browser = rawUA[:i]
		} else {
			browser = rawUA
		}
	}

	where := os
	if where == "" {
		where = platform
	}
	if where == "" {
		where = "unknown platform"
	}
	return strings.Join(strings.Fields(browser+" on "+where), " ")
}
