package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
tenants:
  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c
    config:
      ios:
        bundleId: com.shop.ios
        appStoreId: "123456"
        teamId: ABCDE12345
      android:
        packageName: com.shop.android
      web:
        fallbackUrl: https://shop.test
      universal:
        linksDomain: links.shop.test
      app:
        name: Shop
  - tenantId: 7d1f0a52-3b7e-4d0c-8b7a-5c6e2f9d4a11
    config:
      web:
        fallbackUrl: https://other.test
`

func TestDecode(t *testing.T) {
	rows, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	cfg := rows[0].Config
	assert.Equal(t, "com.shop.ios", cfg.IOS.BundleID)
	assert.Equal(t, "123456", cfg.IOS.AppStoreID)
	assert.Equal(t, "com.shop.android", cfg.Android.PackageName)
	assert.Equal(t, "links.shop.test", cfg.Universal.LinksDomain)
	assert.Equal(t, "Shop", cfg.App.Name)

	got, ok := Find(rows, uuid.MustParse("7d1f0a52-3b7e-4d0c-8b7a-5c6e2f9d4a11"))
	assert.True(t, ok)
	assert.Equal(t, "https://other.test", got.Web.FallbackURL)

	_, ok = Find(rows, uuid.New())
	assert.False(t, ok)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("tenants:\n  - tenantId: nope\n"))
	assert.Error(t, err)

	dup := "tenants:\n  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c\n  - tenantId: 2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c\n"
	_, err = Decode(strings.NewReader(dup))
	assert.ErrorContains(t, err, "duplicate")

	rows, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadFile(t *testing.T) {
	rows, err := LoadFile("")
	require.NoError(t, err)
	assert.Nil(t, rows)

	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	rows, err = LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
