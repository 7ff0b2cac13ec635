package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"deeplink-engine/internal/observability"
)

func Router(h *LinkHandler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Route("/v1/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/capabilities", h.Capabilities)
		r.Get("/app-link-config", h.GetConfig)
		r.Put("/app-link-config", h.PutConfig)

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Get("/links", h.Links)
			r.Get("/store-links", h.StoreLinks)
			r.Get("/campaign", h.Campaign)
			r.Get("/qr", h.QRCode)
			r.Get("/share", h.Share)
			r.Get("/redirect.js", h.Script)
			r.Get("/opens", h.Opens)
		})
	})
	r.Get("/p/{tenantID}/{productID}", h.Landing)
	r.Get("/.well-known/apple-app-site-association", h.AppleAppSiteAssociation)
	r.Get("/.well-known/assetlinks.json", h.AssetLinks)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
