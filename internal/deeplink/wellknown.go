package deeplink

import "strings"

// Association file shapes:
//
//	https://developer.apple.com/documentation/xcode/supporting-associated-domains
//	https://developers.google.com/digital-asset-links/v1/getting-started
type AppleAppSiteAssociation struct {
	AppLinks AASAAppLinks `json:"applinks"`
}

type AASAAppLinks struct {
	Apps    []string     `json:"apps"`
	Details []AASADetail `json:"details"`
}

type AASADetail struct {
	AppID string   `json:"appID"`
	Paths []string `json:"paths"`
}

type AssetLink struct {
	Relation []string        `json:"relation"`
	Target   AssetLinkTarget `json:"target"`
}

type AssetLinkTarget struct {
	Namespace              string   `json:"namespace"`
	PackageName            string   `json:"package_name"`
	SHA256CertFingerprints []string `json:"sha256_cert_fingerprints"`
}

var associatedPaths = []string{"/product/*", "/products/*"}

// AppleAppSiteAssociationFor returns the AASA document for cfg. It needs
// both a team id and a bundle id.
func AppleAppSiteAssociationFor(cfg AppLinkConfig) (AppleAppSiteAssociation, bool) {
	team := strings.TrimSpace(cfg.IOS.TeamID)
	bundle := strings.TrimSpace(cfg.IOS.BundleID)
	if team == "" || bundle == "" {
		return AppleAppSiteAssociation{}, false
	}
	return AppleAppSiteAssociation{
		AppLinks: AASAAppLinks{
			Apps: []string{},
			Details: []AASADetail{{
				AppID: team + "." + bundle,
				Paths: append([]string(nil), associatedPaths...),
			}},
		},
	}, true
}

// AssetLinksFor returns the Digital Asset Links statement list for cfg.
// It needs a package name and a signing certificate fingerprint.
func AssetLinksFor(cfg AppLinkConfig) ([]AssetLink, bool) {
	pkg := strings.TrimSpace(cfg.Android.PackageName)
	fp := strings.ToUpper(strings.TrimSpace(cfg.Android.SHA256Fingerprint))
	if pkg == "" || fp == "" {
		return nil, false
	}
	return []AssetLink{{
		Relation: []string{"delegate_permission/common.handle_all_urls"},
		Target: AssetLinkTarget{
			Namespace:              "android_app",
			PackageName:            pkg,
			SHA256CertFingerprints: []string{fp},
		},
	}}, true
}

// Hosts lists the hosts cfg answers for, lower-cased and de-duplicated.
func Hosts(cfg AppLinkConfig) []string {
	var out []string
	seen := map[string]bool{}
	for _, h := range []string{cfg.Universal.LinksDomain, cfg.Universal.AppLinksDomain, cfg.Web.Domain} {
		h = strings.ToLower(normalizeHost(h))
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
