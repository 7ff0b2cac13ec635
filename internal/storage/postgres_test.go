package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	id      string
	doc     []byte
	updated time.Time
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.id
	*dest[1].(*[]byte) = r.doc
	*dest[2].(*time.Time) = r.updated
	return nil
}

func TestScanConfig(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	row, err := scanConfig(fakeRow{
		id:      "2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c",
		doc:     []byte(`{"ios":{"customScheme":"shop"},"web":{"fallbackUrl":"https://shop.test"}}`),
		updated: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c", row.TenantID.String())
	assert.Equal(t, "shop", row.Config.IOS.CustomScheme)
	assert.Equal(t, "https://shop.test", row.Config.Web.FallbackURL)
	assert.Equal(t, now, row.UpdatedAt)
}

func TestScanConfig_Errors(t *testing.T) {
	_, err := scanConfig(fakeRow{err: pgx.ErrNoRows})
	assert.True(t, errors.Is(err, pgx.ErrNoRows))

	_, err = scanConfig(fakeRow{id: "not-a-uuid", doc: []byte(`{}`)})
	assert.Error(t, err)

	_, err = scanConfig(fakeRow{id: "2f6b8c1e-8d4f-4c55-9a52-0e4c8f7a1b2c", doc: []byte(`{`)})
	assert.Error(t, err)
}

func TestListenChannel(t *testing.T) {
	assert.Equal(t, "app_link_config_change", (&Store{}).ListenChannel())
	assert.Equal(t, "custom", (&Store{channel: "custom"}).ListenChannel())
}
