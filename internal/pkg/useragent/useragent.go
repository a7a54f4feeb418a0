// Package useragent derives browser, device and OS labels from raw
// user-agent strings with ordered substring rules. Tokens that appear in
// more than one family (Edge and Opera both embed "Chrome", Chrome embeds
// "Safari") are disambiguated by checking the more specific token first.
package useragent

import "strings"

const Unknown = "Unknown"

// Classification is the device profile derived from one user-agent string.
type Classification struct {
	Browser string
	Device  string
	OS      string
}

// Classify maps a raw user-agent string to browser, device and OS labels.
// An empty string yields Unknown for all three.
func Classify(userAgent string) Classification {
	if userAgent == "" {
		return Classification{Browser: Unknown, Device: Unknown, OS: Unknown}
	}

	ua := strings.ToLower(userAgent)
	return Classification{
		Browser: classifyBrowser(ua),
		Device:  classifyDevice(ua),
		OS:      classifyOS(ua),
	}
}

func classifyBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg"):
		return "Edge"
	case strings.Contains(ua, "opr") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	default:
		return "Other"
	}
}

func classifyDevice(ua string) string {
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "android"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

func classifyOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	// "macintosh", not "mac os": iPhone agents carry "like Mac OS X".
	case strings.Contains(ua, "macintosh"):
		return "macOS"
	// Android user agents also contain "linux", so Android wins first.
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod"):
		return "iOS"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "Other"
	}
}
