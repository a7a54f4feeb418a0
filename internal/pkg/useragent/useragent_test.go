package useragent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clickpulse/internal/pkg/useragent"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		browser string
		device  string
		os      string
	}{
		{
			name:    "desktop chrome on windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: "Chrome", device: "Desktop", os: "Windows",
		},
		{
			name:    "edge carries a chrome token but classifies as edge",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.51 Safari/537.36 Edg/100.0.1185.29",
			browser: "Edge", device: "Desktop", os: "Windows",
		},
		{
			name:    "opera carries a chrome token but classifies as opera",
			ua:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0",
			browser: "Opera", device: "Desktop", os: "Linux",
		},
		{
			name:    "safari on iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			browser: "Safari", device: "Mobile", os: "iOS",
		},
		{
			name:    "safari on macos desktop",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			browser: "Safari", device: "Desktop", os: "macOS",
		},
		{
			name:    "firefox on linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser: "Firefox", device: "Desktop", os: "Linux",
		},
		{
			name:    "android chrome is mobile not linux",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			browser: "Chrome", device: "Mobile", os: "Android",
		},
		{
			name:    "ipad is tablet",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			browser: "Safari", device: "Tablet", os: "iOS",
		},
		{
			name:    "android tablet token wins over mobile",
			ua:      "Mozilla/5.0 (Linux; Android 13; Tablet; SM-X200) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			browser: "Chrome", device: "Tablet", os: "Android",
		},
		{
			name:    "unrecognized agent",
			ua:      "curl/8.4.0",
			browser: "Other", device: "Desktop", os: "Other",
		},
		{
			name:    "empty agent",
			ua:      "",
			browser: useragent.Unknown, device: useragent.Unknown, os: useragent.Unknown,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := useragent.Classify(tc.ua)
			assert.Equal(t, tc.browser, got.Browser, "browser")
			assert.Equal(t, tc.device, got.Device, "device")
			assert.Equal(t, tc.os, got.OS, "os")
		})
	}
}
