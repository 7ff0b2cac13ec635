package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeplink-engine/internal/deeplink"
	"deeplink-engine/internal/redirect"
)

const tenantsYAML = `tenants:
  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c
    config:
      ios:
        customScheme: shopapp
        appStoreId: "123456"
      web:
        fallbackUrl: https://shop.test
`

const tenant = "2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c"

func writeTenants(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tenantsYAML), 0o600))
	return path
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"bogus"}} {
		var out bytes.Buffer
		err := run(args, &out, nil)
		assert.ErrorIs(t, err, errUsage)
		assert.Contains(t, out.String(), "usage: linkctl")
	}
}

func TestRun_Derive(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{
		"derive", "--config", writeTenants(t), "--tenant", tenant, "--product", "p1",
		"--param", "ref=mail", "--param", "src=a&b",
		"--utm-source", "email", "--utm-medium", "newsletter", "--utm-campaign", "summer",
	}, &out, nil)
	require.NoError(t, err)

	var got deriveOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "shopapp://product?id=p1&ref=mail&src=a%26b", got.Links.IOS)
	assert.Equal(t, "https://shop.test/products/p1?id=p1&ref=mail&src=a%26b", got.Links.Web)
	assert.Equal(t, "https://apps.apple.com/app/id123456", got.Stores.IOS)
	assert.Equal(t, "https://shop.test/products/p1?utm_source=email&utm_medium=newsletter&utm_campaign=summer", got.Campaign)
	assert.Contains(t, got.QRCode, "size=300x300")
}

func TestRun_DeriveErrors(t *testing.T) {
	path := writeTenants(t)
	tests := []struct {
		name string
		args []string
	}{
		{"bad tenant", []string{"derive", "--config", path, "--tenant", "x", "--product", "p1"}},
		{"bad param", []string{"derive", "--config", path, "--tenant", tenant, "--product", "p1", "--param", "novalue"}},
		{"empty product", []string{"derive", "--config", path, "--tenant", tenant}},
		{"partial campaign", []string{"derive", "--config", path, "--tenant", tenant, "--product", "p1", "--utm-source", "email"}},
		{"missing file", []string{"derive", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--tenant", tenant, "--product", "p1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out, nil))
		})
	}
}

func TestRun_OpenDesktop(t *testing.T) {
	var targets []string
	nav := redirect.NavigatorFunc(func(target string) error {
		targets = append(targets, target)
		return nil
	})

	var out bytes.Buffer
	err := run([]string{"open", "--config", writeTenants(t), "--tenant", tenant, "--product", "p1", "--user-agent", "Mozilla/5.0 (X11; Linux x86_64)"}, &out, nav)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://shop.test/products/p1?id=p1"}, targets)
	assert.Contains(t, out.String(), "resolved (web)")
}

func TestRun_OpenDryRun(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"open", "--config", writeTenants(t), "--tenant", tenant, "--product", "p1", "--user-agent", "Mozilla/5.0 (Linux; Android 14)", "--dry-run"}, &out, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "navigate https://shop.test/products/p1?id=p1\n")
	assert.Contains(t, out.String(), "resolved (android)")
}

func TestRun_OpenIOSFallsBackToStore(t *testing.T) {
	var targets []string
	nav := redirect.NavigatorFunc(func(target string) error {
		targets = append(targets, target)
		return nil
	})

	var out bytes.Buffer
	err := run([]string{"open", "--config", writeTenants(t), "--tenant", tenant, "--product", "p1", "--user-agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"}, &out, nav)
	require.NoError(t, err)
	assert.Equal(t, []string{"shopapp://product?id=p1", "https://apps.apple.com/app/id123456"}, targets)
	assert.Contains(t, out.String(), "falling back after 2s")
	assert.Contains(t, out.String(), "resolved (ios)")
}

func TestRun_UnusableTenantInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`tenants:
  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c
    config:
      ios:
        customScheme: javascript
      web:
        fallbackUrl: https://shop.test
`), 0o600))

	var out bytes.Buffer
	err := run([]string{"derive", "--config", path, "--tenant", tenant, "--product", "p1"}, &out, nil)
	assert.ErrorIs(t, err, deeplink.ErrInvalidInput)
	assert.Empty(t, out.String())
}
