// Package device turns raw User-Agent strings into short human-readable
// descriptions. Admins reviewing a verification see which device submitted
// the capture.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Describe parses a User-Agent into "<browser> on <platform>" form.
func Describe(rawUserAgent string) string {
	if strings.TrimSpace(rawUserAgent) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()
	platform := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}

	switch {
	case browser != "" && platform != "":
		return browser + " on " + platform
	case browser != "":
		return browser
	case platform != "":
		return platform
	default:
		return "Unknown Device"
	}
}
