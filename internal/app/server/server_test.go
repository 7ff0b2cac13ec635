package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeplink-engine/internal/config"
	"deeplink-engine/internal/deeplink"
)

const seedYAML = `tenants:
  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c
    config:
      ios:
        customScheme: shopapp
        bundleId: com.shop.ios
        teamId: ABCDE12345
      web:
        fallbackUrl: https://shop.test
      universal:
        linksDomain: links.shop.test
`

func seedOnlyConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))

	cfg := config.LoadWith(viper.New())
	cfg.Postgres.Host = ""
	cfg.Redis.URL = ""
	cfg.Links.SeedFile = path
	return cfg
}

func TestNew_SeedOnly(t *testing.T) {
	a, err := New(context.Background(), seedOnlyConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.Registry().Len())

	tests := []struct {
		name       string
		url        string
		host       string
		wantStatus int
	}{
		{"links for seeded tenant", "/v1/tenants/2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c/products/p1/links", "", http.StatusOK},
		{"aasa by links domain", "/.well-known/apple-app-site-association", "links.shop.test", http.StatusOK},
		{"opens without redis", "/v1/tenants/2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c/products/p1/opens", "", http.StatusServiceUnavailable},
		{"config read from seed", "/v1/tenants/2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c/app-link-config", "", http.StatusOK},
		{"unknown route", "/v1/tenants/2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c/opens", "", http.StatusNotFound},
		{"healthz", "/healthz", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.host != "" {
				req.Host = tt.host
			}
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c/products/p1/links", nil)
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	var b deeplink.ProductLinkBundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, "shopapp://product?id=p1", b.IOS)
	assert.Equal(t, "https://links.shop.test/product/p1?id=p1", b.Universal)
}

func TestNew_BadSeedFile(t *testing.T) {
	cfg := seedOnlyConfig(t)
	cfg.Links.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestServe_GracefulShutdown(t *testing.T) {
	a, err := New(context.Background(), seedOnlyConfig(t))
	require.NoError(t, err)
	defer a.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
