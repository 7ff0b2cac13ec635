package deeplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfiguredCapabilities(t *testing.T) {
	tests := []struct {
		name string
		cfg  AppLinkConfig
		want Capabilities
	}{
		{"empty", AppLinkConfig{}, Capabilities{}},
		{"web only is valid but incomplete", webOnly(), Capabilities{HasWebFallback: true}},
		{
			name: "ios scheme completes",
			cfg:  AppLinkConfig{IOS: IOSConfig{CustomScheme: "shop"}, Web: WebConfig{FallbackURL: "https://shop.test"}},
			want: Capabilities{HasIOSApp: true, HasWebFallback: true, IsComplete: true},
		},
		{
			name: "android package completes",
			cfg:  AppLinkConfig{Android: AndroidConfig{PackageName: "com.shop"}, Web: WebConfig{FallbackURL: "https://shop.test"}},
			want: Capabilities{HasAndroidApp: true, HasWebFallback: true, IsComplete: true},
		},
		{
			name: "universal without fallback is incomplete",
			cfg:  AppLinkConfig{Universal: UniversalConfig{LinksDomain: "links.shop.test"}},
			want: Capabilities{HasUniversalLinks: true},
		},
		{
			name: "store ids alone open nothing",
			cfg:  AppLinkConfig{IOS: IOSConfig{AppStoreID: "1"}, Web: WebConfig{FallbackURL: "https://shop.test"}},
			want: Capabilities{HasWebFallback: true},
		},
		{
			name: "everything",
			cfg:  fullConfig(),
			want: Capabilities{HasIOSApp: true, HasAndroidApp: true, HasUniversalLinks: true, HasWebFallback: true, IsComplete: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfiguredCapabilities(tt.cfg))
		})
	}
}

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name  string
		ua    string
		want  Platform
		label string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", Platform{IsIOS: true}, "ios"},
		{"ipad lower case", "mozilla/5.0 (ipad; cpu os 16_0)", Platform{IsIOS: true}, "ios"},
		{"ipod", "Mozilla/5.0 (iPod touch; CPU iPhone OS 12_0)", Platform{IsIOS: true}, "ios"},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", Platform{IsAndroid: true}, "android"},
		{"desktop", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", Platform{}, "web"},
		{"empty", "", Platform{}, "web"},
		{"both match prefers ios", "Mozilla/5.0 (iPad; Android emulator)", Platform{IsIOS: true}, "ios"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectPlatform(tt.ua)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.label, got.Label())
		})
	}
}

func TestAssociationFiles(t *testing.T) {
	aasa, ok := AppleAppSiteAssociationFor(fullConfig())
	assert.True(t, ok)
	assert.Equal(t, "ABCDE12345.com.shop.ios", aasa.AppLinks.Details[0].AppID)
	assert.Equal(t, []string{"/product/*", "/products/*"}, aasa.AppLinks.Details[0].Paths)
	assert.NotNil(t, aasa.AppLinks.Apps)

	_, ok = AppleAppSiteAssociationFor(webOnly())
	assert.False(t, ok)

	links, ok := AssetLinksFor(fullConfig())
	assert.True(t, ok)
	assert.Equal(t, "com.shop.android", links[0].Target.PackageName)
	assert.Equal(t, []string{"AA:BB:CC"}, links[0].Target.SHA256CertFingerprints)
	assert.Equal(t, "android_app", links[0].Target.Namespace)

	_, ok = AssetLinksFor(AppLinkConfig{Android: AndroidConfig{PackageName: "com.shop"}})
	assert.False(t, ok)

	assert.Equal(t, []string{"links.shop.test", "app.shop.test", "shop.test"}, Hosts(fullConfig()))
	assert.Empty(t, Hosts(webOnly()))
}
