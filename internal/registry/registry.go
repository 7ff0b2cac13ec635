package registry

import (
	"context"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"deeplink-engine/internal/cache"
	"deeplink-engine/internal/deeplink"
	"deeplink-engine/internal/observability"
	"deeplink-engine/internal/storage"
)

// Loader supplies stored tenant configurations.
type Loader interface {
	LoadAppLinkConfigs(ctx context.Context) ([]storage.TenantConfigRow, error)
}

type snapshot struct {
	byTenant map[uuid.UUID]deeplink.AppLinkConfig
	byHost   map[string]uuid.UUID
}

// Registry exposes read-only, lock-free tenant configuration lookups.
// Derivations read a config snapshot; they never see a partial rebuild.
type Registry struct {
	snap cache.Snapshot[snapshot]
	seed []storage.TenantConfigRow
}

// New returns a registry serving seed until the first BuildSnapshot.
func New(seed []storage.TenantConfigRow) *Registry {
	r := &Registry{seed: seed}
	r.snap.Store(build(seed, nil))
	return r
}

// BuildSnapshot reloads stored configurations and swaps them in. Stored
// rows override seed rows for the same tenant. A nil loader rebuilds from
// the seed alone.
func (r *Registry) BuildSnapshot(ctx context.Context, l Loader) error {
	var rows []storage.TenantConfigRow
	if l != nil {
		var err error
		rows, err = l.LoadAppLinkConfigs(ctx)
		if err != nil {
			return err
		}
	}
	s := build(r.seed, rows)
	r.snap.Store(s)
	observability.RegistryTenants.Set(float64(len(s.byTenant)))
	log.Info().Int("tenants", len(s.byTenant)).Int("hosts", len(s.byHost)).Msg("registry snapshot built")
	return nil
}

func build(layers ...[]storage.TenantConfigRow) snapshot {
	s := snapshot{
		byTenant: map[uuid.UUID]deeplink.AppLinkConfig{},
		byHost:   map[string]uuid.UUID{},
	}
	for _, rows := range layers {
		for _, row := range rows {
			if err := deeplink.ValidateConfig(row.Config); err != nil {
				log.Warn().Err(err).Str("tenant", row.TenantID.String()).Msg("skipping unusable app link config")
				continue
			}
			s.byTenant[row.TenantID] = row.Config
		}
	}
	for id, cfg := range s.byTenant {
		for _, h := range deeplink.Hosts(cfg) {
			if prev, ok := s.byHost[h]; ok && prev != id {
				log.Warn().Str("host", h).Str("tenant", id.String()).Str("owner", prev.String()).Msg("host claimed by two tenants")
				if strings.Compare(prev.String(), id.String()) < 0 {
					continue
				}
			}
			s.byHost[h] = id
		}
	}
	return s
}

func (r *Registry) current() snapshot {
	s, _ := r.snap.Load()
	return s
}

func (r *Registry) Lookup(tenantID uuid.UUID) (deeplink.AppLinkConfig, bool) {
	cfg, ok := r.current().byTenant[tenantID]
	return cfg, ok
}

// LookupHost finds the tenant whose link or web domain is host.
func (r *Registry) LookupHost(host string) (uuid.UUID, deeplink.AppLinkConfig, bool) {
	host = strings.ToLower(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	s := r.current()
	id, ok := s.byHost[host]
	if !ok {
		return uuid.Nil, deeplink.AppLinkConfig{}, false
	}
	return id, s.byTenant[id], true
}

// Resolve returns the tenant's configuration, or a web-only default
// falling back to origin when the tenant has none.
func (r *Registry) Resolve(tenantID uuid.UUID, origin string) (cfg deeplink.AppLinkConfig, known bool) {
	if cfg, ok := r.Lookup(tenantID); ok {
		return cfg, true
	}
	return deeplink.DefaultConfig(origin), false
}

func (r *Registry) Len() int { return len(r.current().byTenant) }
