package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"deeplink-engine/internal/deeplink"
	"deeplink-engine/internal/observability"
	"deeplink-engine/internal/redirect"
	"deeplink-engine/internal/registry"
	"deeplink-engine/internal/storage"
	"deeplink-engine/internal/tracking"
)

// ConfigStore persists tenant configurations.
type ConfigStore interface {
	GetAppLinkConfig(ctx context.Context, tenantID uuid.UUID) (storage.TenantConfigRow, error)
	UpsertAppLinkConfig(ctx context.Context, tenantID uuid.UUID, cfg deeplink.AppLinkConfig) error
}

// OpenTracker counts landing-page opens.
type OpenTracker interface {
	RecordOpen(ctx context.Context, tenantID uuid.UUID, productID, platform string) error
	Counts(ctx context.Context, tenantID uuid.UUID, productID string) (tracking.OpenCounts, error)
}

type Options struct {
	PublicOrigin string
	QREndpoint   string
	QRSize       int
}

type LinkHandler struct {
	Reg     *registry.Registry
	Store   ConfigStore // optional
	Tracker OpenTracker // optional
	Opts    Options
}

func NewLinkHandler(reg *registry.Registry, store ConfigStore, tracker OpenTracker, opts Options) *LinkHandler {
	return &LinkHandler{Reg: reg, Store: store, Tracker: tracker, Opts: opts}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDerivationError maps derivation failures: bad input is the
// caller's fault, anything else is ours.
func writeDerivationError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, deeplink.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("derivation failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func tenantID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "tenantID"))
}

// origin is the scheme and host the request arrived on.
func (h *LinkHandler) origin(r *http.Request) string {
	if r.Host == "" {
		return h.Opts.PublicOrigin
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// tenantConfig resolves the tenant in the path; unknown tenants get the
// web-only default for this origin.
func (h *LinkHandler) tenantConfig(w http.ResponseWriter, r *http.Request) (uuid.UUID, deeplink.AppLinkConfig, bool) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return uuid.Nil, deeplink.AppLinkConfig{}, false
	}
	cfg, _ := h.Reg.Resolve(id, h.origin(r))
	return id, cfg, true
}

// productRequest reads the product id from the path and the query string
// as ordered custom params.
func productRequest(r *http.Request) (deeplink.ProductLinkRequest, error) {
	params, err := deeplink.ParseParams(r.URL.RawQuery)
	if err != nil {
		return deeplink.ProductLinkRequest{}, err
	}
	return deeplink.ProductLinkRequest{ProductID: chi.URLParam(r, "productID"), Params: params}, nil
}

func (h *LinkHandler) Links(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	req, err := productRequest(r)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	b, err := deeplink.DeriveProductLink(cfg, req.ProductID, req.Params)
	observability.ObserveDerivation("product", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *LinkHandler) StoreLinks(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	observability.ObserveDerivation("store", nil)
	writeJSON(w, http.StatusOK, deeplink.DeriveAppStoreLinks(cfg))
}

func (h *LinkHandler) Campaign(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	link, err := deeplink.DeriveCampaignLink(cfg, chi.URLParam(r, "productID"), deeplink.Campaign{
		Source:  q.Get("source"),
		Medium:  q.Get("medium"),
		Name:    q.Get("campaign"),
		Content: q.Get("content"),
	})
	observability.ObserveDerivation("campaign", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *LinkHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	size := h.Opts.QRSize
	if s := r.URL.Query().Get("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 2000 {
			writeError(w, http.StatusBadRequest, "size must be between 1 and 2000")
			return
		}
		size = n
	}
	link, err := deeplink.DeriveQRCodeURL(cfg, chi.URLParam(r, "productID"), deeplink.QROptions{Endpoint: h.Opts.QREndpoint, Size: size})
	observability.ObserveDerivation("qr", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *LinkHandler) Share(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	links, err := deeplink.DeriveShareLinks(cfg, chi.URLParam(r, "productID"), deeplink.ShareContent{
		Title:    q.Get("title"),
		ImageURL: q.Get("image"),
	})
	observability.ObserveDerivation("share", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (h *LinkHandler) Script(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	script, err := redirect.Script(cfg, chi.URLParam(r, "productID"))
	observability.ObserveDerivation("script", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(script))
}

func (h *LinkHandler) Capabilities(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, deeplink.ConfiguredCapabilities(cfg))
}

func (h *LinkHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	if h.Store == nil {
		cfg, ok := h.Reg.Lookup(id)
		if !ok {
			writeError(w, http.StatusNotFound, "no app link config")
			return
		}
		writeJSON(w, http.StatusOK, storage.TenantConfigRow{TenantID: id, Config: cfg})
		return
	}
	row, err := h.Store.GetAppLinkConfig(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no app link config")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant", id.String()).Msg("load app link config")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *LinkHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	var cfg deeplink.AppLinkConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := deeplink.ValidateConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "configuration store unavailable")
		return
	}
	if err := h.Store.UpsertAppLinkConfig(r.Context(), id, cfg); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("tenant", id.String()).Msg("save app link config")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	// the listener refreshes other replicas; refresh this one now
	if l, ok := h.Store.(registry.Loader); ok {
		if err := h.Reg.BuildSnapshot(r.Context(), l); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("refresh snapshot after save")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinkHandler) Opens(w http.ResponseWriter, r *http.Request) {
	id, err := tenantID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}
	if h.Tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "tracking unavailable")
		return
	}
	counts, err := h.Tracker.Counts(r.Context(), id, chi.URLParam(r, "productID"))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("read open counts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Landing serves product links meant to be shared: desktop clients are
// redirected to the web page, mobile clients get a page that tries the
// app first.
func (h *LinkHandler) Landing(w http.ResponseWriter, r *http.Request) {
	id, cfg, ok := h.tenantConfig(w, r)
	if !ok {
		return
	}
	req, err := productRequest(r)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	productID := req.ProductID
	b, err := deeplink.DeriveProductLink(cfg, productID, req.Params)
	observability.ObserveDerivation("landing", err)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}

	platform := deeplink.DetectPlatform(r.UserAgent())
	plan := redirect.PlanFor(b, deeplink.DeriveAppStoreLinks(cfg), platform)

	if h.Tracker != nil {
		if err := h.Tracker.RecordOpen(r.Context(), id, productID, platform.Label()); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("tenant", id.String()).Str("product", productID).Msg("record open")
		}
	}

	if !plan.AttemptsApp() {
		observability.RedirectPlans.WithLabelValues(platform.Label(), "web").Inc()
		http.Redirect(w, r, plan.Fallback, http.StatusFound)
		return
	}
	observability.RedirectPlans.WithLabelValues(platform.Label(), "app").Inc()

	page, err := redirect.LandingPage(cfg, productID, req.Params)
	if err != nil {
		writeDerivationError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (h *LinkHandler) AppleAppSiteAssociation(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.Reg.LookupHost(r.Host)
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc, ok := deeplink.AppleAppSiteAssociationFor(cfg)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *LinkHandler) AssetLinks(w http.ResponseWriter, r *http.Request) {
	_, cfg, ok := h.Reg.LookupHost(r.Host)
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc, ok := deeplink.AssetLinksFor(cfg)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
