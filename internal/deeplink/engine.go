package deeplink

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultQREndpoint = "https://api.qrserver.com/v1/create-qr-code/"
	DefaultQRSize     = 300

	appStoreBase  = "https://apps.apple.com/app/id"
	playStoreBase = "https://play.google.com/store/apps/details?id="
)

var (
	schemePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*$`)
	blockedSchemes = map[string]bool{"javascript": true, "data": true, "vbscript": true, "file": true}
)

// ValidateConfig reports whether cfg can produce links at all.
func ValidateConfig(cfg AppLinkConfig) error {
	_, err := validBase(cfg)
	return err
}

// validBase checks the fallback and the explicit custom schemes and
// returns the web base links are built on.
func validBase(cfg AppLinkConfig) (string, error) {
	base, err := webBase(cfg)
	if err != nil {
		return "", err
	}
	if err := checkScheme("ios custom scheme", cfg.IOS.CustomScheme); err != nil {
		return "", err
	}
	if err := checkScheme("android custom scheme", cfg.Android.CustomScheme); err != nil {
		return "", err
	}
	return base, nil
}

// webBase is the fallback without a trailing slash. It must be an absolute
// http(s) URL without query or fragment.
func webBase(cfg AppLinkConfig) (string, error) {
	raw := strings.TrimSpace(cfg.Web.FallbackURL)
	if raw == "" {
		return "", fmt.Errorf("%w: web fallback url is required", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: web fallback url %q is not an absolute http(s) url", ErrInvalidInput, raw)
	}
	if u.RawQuery != "" || u.ForceQuery || u.Fragment != "" {
		return "", fmt.Errorf("%w: web fallback url %q must not carry a query or fragment", ErrInvalidInput, raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

func checkProductID(productID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product id is empty", ErrInvalidInput)
	}
	return nil
}

// normalizeScheme accepts "myapp", "myapp:" and "myapp://".
func normalizeScheme(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "//")
	return strings.TrimSuffix(s, ":")
}

func usableScheme(s string) bool {
	return schemePattern.MatchString(s) && !blockedSchemes[strings.ToLower(s)]
}

func checkScheme(field, raw string) error {
	if s := normalizeScheme(raw); s != "" && !usableScheme(s) {
		return fmt.Errorf("%w: %s %q is not a usable url scheme", ErrInvalidInput, field, raw)
	}
	return nil
}

// normalizeHost accepts a bare host or a URL and keeps the host part.
func normalizeHost(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

// nativeScheme is the custom scheme, else the app identifier when that is
// itself a valid scheme (package names with "_" are not).
func nativeScheme(customScheme, identifier string) string {
	if s := normalizeScheme(customScheme); s != "" {
		if usableScheme(s) {
			return s
		}
		return ""
	}
	if s := normalizeScheme(identifier); s != "" && usableScheme(s) {
		return s
	}
	return ""
}

// DeriveProductLink builds the link family for a product. Missing native
// or universal settings degrade to the web link.
func DeriveProductLink(cfg AppLinkConfig, productID string, params Params) (ProductLinkBundle, error) {
	if err := checkProductID(productID); err != nil {
		return ProductLinkBundle{}, err
	}
	base, err := validBase(cfg)
	if err != nil {
		return ProductLinkBundle{}, err
	}

	q := productQuery(productID, params)
	path := url.PathEscape(productID)
	web := base + "/products/" + path + "?" + q

	b := ProductLinkBundle{IOS: web, Android: web, Universal: web, Web: web}

	if s := nativeScheme(cfg.IOS.CustomScheme, cfg.IOS.BundleID); s != "" {
		b.IOS = s + "://product?" + q
		b.CanOpenApp.IOS = true
	}
	if s := nativeScheme(cfg.Android.CustomScheme, cfg.Android.PackageName); s != "" {
		b.Android = s + "://product?" + q
		b.CanOpenApp.Android = true
	}
	if host := normalizeHost(cfg.Universal.LinksDomain); host != "" {
		b.Universal = "https://" + host + "/product/" + path + "?" + q
	}
	return b, nil
}

// DeriveAppStoreLinks returns store listings for the configured ids only.
func DeriveAppStoreLinks(cfg AppLinkConfig) StoreLinks {
	var s StoreLinks
	if id := strings.TrimSpace(cfg.IOS.AppStoreID); id != "" {
		s.IOS = appStoreBase + url.PathEscape(strings.TrimPrefix(id, "id"))
	}
	if id := strings.TrimSpace(cfg.Android.PlayStoreID); id != "" {
		s.Android = playStoreBase + url.QueryEscape(id)
	}
	return s
}

// DeriveCampaignLink tags the web product URL with UTM parameters in the
// fixed order source, medium, campaign, content.
func DeriveCampaignLink(cfg AppLinkConfig, productID string, c Campaign) (string, error) {
	if err := checkProductID(productID); err != nil {
		return "", err
	}
	base, err := validBase(cfg)
	if err != nil {
		return "", err
	}
	if c.Source == "" || c.Medium == "" || c.Name == "" {
		return "", fmt.Errorf("%w: campaign source, medium and name are required", ErrInvalidInput)
	}

	q := Params{
		{Key: "utm_source", Value: c.Source},
		{Key: "utm_medium", Value: c.Medium},
		{Key: "utm_campaign", Value: c.Name},
	}
	if c.Content != "" {
		q = append(q, Param{Key: "utm_content", Value: c.Content})
	}
	return base + "/products/" + url.PathEscape(productID) + "?" + q.Encode(), nil
}

type QROptions struct {
	Endpoint string // DefaultQREndpoint when empty
	Size     int    // DefaultQRSize when <= 0
}

// DeriveQRCodeURL wraps the product's universal link in a square QR image
// request against a third-party renderer.
func DeriveQRCodeURL(cfg AppLinkConfig, productID string, opts QROptions) (string, error) {
	b, err := DeriveProductLink(cfg, productID, nil)
	if err != nil {
		return "", err
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultQREndpoint
	}
	size := opts.Size
	if size <= 0 {
		size = DefaultQRSize
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	dim := strconv.Itoa(size)
	return endpoint + sep + "size=" + dim + "x" + dim + "&data=" + escapeComponent(b.Universal), nil
}

// DeriveShareLinks builds social share URLs around the product web link.
func DeriveShareLinks(cfg AppLinkConfig, productID string, content ShareContent) (ShareLinks, error) {
	b, err := DeriveProductLink(cfg, productID, nil)
	if err != nil {
		return ShareLinks{}, err
	}
	link := escapeComponent(b.Web)
	title := escapeComponent(content.Title)

	waText := b.Web
	if content.Title != "" {
		waText = content.Title + " " + b.Web
	}

	return ShareLinks{
		Facebook:  "https://www.facebook.com/sharer/sharer.php?u=" + link,
		Twitter:   "https://twitter.com/intent/tweet?url=" + link + "&text=" + title,
		WhatsApp:  "https://wa.me/?text=" + escapeComponent(waText),
		Telegram:  "https://t.me/share/url?url=" + link + "&text=" + title,
		LinkedIn:  "https://www.linkedin.com/sharing/share-offsite/?url=" + link,
		Pinterest: "https://pinterest.com/pin/create/button/?url=" + link + "&media=" + escapeComponent(content.ImageURL) + "&description=" + title,
	}, nil
}

// escapeComponent percent-encodes s for use inside a query value, with
// spaces as %20.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
