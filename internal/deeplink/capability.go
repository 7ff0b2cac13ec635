package deeplink

import (
	"regexp"
	"strings"
)

// User agent patterns, matched case-insensitively. Shared with the
// embeddable redirect script.
const (
	IOSAgentPattern     = `iphone|ipad|ipod`
	AndroidAgentPattern = `android`
)

var (
	iosAgent     = regexp.MustCompile(`(?i)` + IOSAgentPattern)
	androidAgent = regexp.MustCompile(`(?i)` + AndroidAgentPattern)
)

// ConfiguredCapabilities reports which channels cfg can serve.
func ConfiguredCapabilities(cfg AppLinkConfig) Capabilities {
	c := Capabilities{
		HasIOSApp:         nativeScheme(cfg.IOS.CustomScheme, cfg.IOS.BundleID) != "",
		HasAndroidApp:     nativeScheme(cfg.Android.CustomScheme, cfg.Android.PackageName) != "",
		HasUniversalLinks: normalizeHost(cfg.Universal.LinksDomain) != "",
		HasWebFallback:    strings.TrimSpace(cfg.Web.FallbackURL) != "",
	}
	c.IsComplete = c.HasWebFallback && (c.HasIOSApp || c.HasAndroidApp || c.HasUniversalLinks)
	return c
}

// DetectPlatform classifies a user agent. iOS wins when both match.
func DetectPlatform(userAgent string) Platform {
	if iosAgent.MatchString(userAgent) {
		return Platform{IsIOS: true}
	}
	if androidAgent.MatchString(userAgent) {
		return Platform{IsAndroid: true}
	}
	return Platform{}
}
