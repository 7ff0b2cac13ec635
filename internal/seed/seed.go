// Package seed loads tenant app-link configurations from YAML files. A
// seed file is how the built-in default configuration and local fixtures
// reach the registry without a database.
package seed

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"deeplink-engine/internal/deeplink"
	"deeplink-engine/internal/storage"
)

type file struct {
	Tenants []struct {
		TenantID string                 `yaml:"tenantId"`
		Config   deeplink.AppLinkConfig `yaml:"config"`
	} `yaml:"tenants"`
}

// LoadFile reads a seed file. An empty path yields no tenants.
func LoadFile(path string) ([]storage.TenantConfigRow, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file %s: %w", path, err)
	}
	defer f.Close()

	rows, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return rows, nil
}

// Decode parses seed YAML. Tenant ids must be UUIDs and unique.
func Decode(r io.Reader) ([]storage.TenantConfigRow, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	seen := map[uuid.UUID]bool{}
	out := make([]storage.TenantConfigRow, 0, len(doc.Tenants))
	for i, t := range doc.Tenants {
		id, err := uuid.Parse(t.TenantID)
		if err != nil {
			return nil, fmt.Errorf("tenant %d: invalid tenantId %q: %w", i, t.TenantID, err)
		}
		if seen[id] {
			return nil, fmt.Errorf("tenant %d: duplicate tenantId %s", i, id)
		}
		seen[id] = true
		out = append(out, storage.TenantConfigRow{TenantID: id, Config: t.Config})
	}
	return out, nil
}

// Find returns the seeded configuration for tenantID.
func Find(rows []storage.TenantConfigRow, tenantID uuid.UUID) (deeplink.AppLinkConfig, bool) {
	for _, r := range rows {
		if r.TenantID == tenantID {
			return r.Config, true
		}
	}
	return deeplink.AppLinkConfig{}, false
}
