package deeplink

// AppLinkConfig is a tenant's app-linking configuration.
// Only Web.FallbackURL is mandatory; every other field may be empty.
type AppLinkConfig struct {
	IOS       IOSConfig       `json:"ios" yaml:"ios"`
	Android   AndroidConfig   `json:"android" yaml:"android"`
	Web       WebConfig       `json:"web" yaml:"web"`
	Universal UniversalConfig `json:"universal" yaml:"universal"`
	App       AppInfo         `json:"app" yaml:"app"`
}

type IOSConfig struct {
	BundleID     string `json:"bundleId,omitempty" yaml:"bundleId"`
	AppStoreID   string `json:"appStoreId,omitempty" yaml:"appStoreId"`
	CustomScheme string `json:"customScheme,omitempty" yaml:"customScheme"`
	TeamID       string `json:"teamId,omitempty" yaml:"teamId"`
}

type AndroidConfig struct {
	PackageName       string `json:"packageName,omitempty" yaml:"packageName"`
	PlayStoreID       string `json:"playStoreId,omitempty" yaml:"playStoreId"`
	CustomScheme      string `json:"customScheme,omitempty" yaml:"customScheme"`
	SHA256Fingerprint string `json:"sha256Fingerprint,omitempty" yaml:"sha256Fingerprint"`
}

type WebConfig struct {
	Domain      string `json:"domain,omitempty" yaml:"domain"`
	FallbackURL string `json:"fallbackUrl" yaml:"fallbackUrl"`
}

type UniversalConfig struct {
	LinksDomain    string `json:"linksDomain,omitempty" yaml:"linksDomain"`
	AppLinksDomain string `json:"appLinksDomain,omitempty" yaml:"appLinksDomain"`
}

// AppInfo is descriptive only and never used to build links.
type AppInfo struct {
	Name        string `json:"name,omitempty" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	IconURL     string `json:"iconUrl,omitempty" yaml:"iconUrl"`
}

// DefaultConfig is the configuration used when a tenant has no record:
// web-only, falling back to origin.
func DefaultConfig(origin string) AppLinkConfig {
	return AppLinkConfig{Web: WebConfig{FallbackURL: origin}}
}

// ProductLinkRequest is a product id plus the caller's custom query
// parameters, in the order given.
type ProductLinkRequest struct {
	ProductID string
	Params    Params
}

type OpenFlags struct {
	IOS     bool `json:"ios"`
	Android bool `json:"android"`
}

// ProductLinkBundle is the family of links derived for one product.
// All four links carry the same query string.
type ProductLinkBundle struct {
	IOS        string    `json:"ios"`
	Android    string    `json:"android"`
	Universal  string    `json:"universal"`
	Web        string    `json:"web"`
	CanOpenApp OpenFlags `json:"canOpenApp"`
}

// StoreLinks holds app store listings. An empty field means no listing
// is configured and is omitted from JSON.
type StoreLinks struct {
	IOS     string `json:"ios,omitempty"`
	Android string `json:"android,omitempty"`
}

// Campaign carries UTM values. Source, Medium and Name are required.
type Campaign struct {
	Source  string `json:"source"`
	Medium  string `json:"medium"`
	Name    string `json:"campaign"`
	Content string `json:"content,omitempty"`
}

// ShareContent is the optional product metadata embedded in share URLs.
type ShareContent struct {
	Title    string
	ImageURL string
}

type ShareLinks struct {
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	WhatsApp  string `json:"whatsapp"`
	Telegram  string `json:"telegram"`
	LinkedIn  string `json:"linkedin"`
	Pinterest string `json:"pinterest"`
}

type Capabilities struct {
	HasIOSApp         bool `json:"hasIOSApp"`
	HasAndroidApp     bool `json:"hasAndroidApp"`
	HasUniversalLinks bool `json:"hasUniversalLinks"`
	HasWebFallback    bool `json:"hasWebFallback"`
	IsComplete        bool `json:"isComplete"`
}

// Platform is the client platform as classified from a user agent.
// At most one of the flags is set.
type Platform struct {
	IsIOS     bool `json:"isIOS"`
	IsAndroid bool `json:"isAndroid"`
}

// Label returns "ios", "android" or "web".
func (p Platform) Label() string {
	switch {
	case p.IsIOS:
		return "ios"
	case p.IsAndroid:
		return "android"
	default:
		return "web"
	}
}
