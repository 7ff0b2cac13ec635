package redirect

import (
	"time"

	"deeplink-engine/internal/deeplink"
)

// FallbackDelay is how long a native app gets before the fallback fires.
const FallbackDelay = 2000 * time.Millisecond

// Plan is the navigation sequence for one platform. An empty AppLink
// means navigate straight to Fallback.
type Plan struct {
	AppLink  string
	Fallback string
	Delay    time.Duration
}

func (p Plan) AttemptsApp() bool { return p.AppLink != "" }

// PlanFor selects the links to follow. The app is attempted only on the
// detected platform and only when the bundle can open it there; the
// fallback is that platform's store listing if any, else the web link.
func PlanFor(b deeplink.ProductLinkBundle, stores deeplink.StoreLinks, p deeplink.Platform) Plan {
	switch {
	case p.IsIOS && b.CanOpenApp.IOS:
		return Plan{AppLink: b.IOS, Fallback: orWeb(stores.IOS, b.Web), Delay: FallbackDelay}
	case p.IsAndroid && b.CanOpenApp.Android:
		return Plan{AppLink: b.Android, Fallback: orWeb(stores.Android, b.Web), Delay: FallbackDelay}
	default:
		return Plan{Fallback: b.Web}
	}
}

func orWeb(store, web string) string {
	if store != "" {
		return store
	}
	return web
}
