package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deeplink-engine/internal/config"
	"deeplink-engine/internal/deeplink"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool    *pgxpool.Pool
	channel string
}

// TenantConfigRow is one tenant's stored app-link configuration.
type TenantConfigRow struct {
	TenantID  uuid.UUID              `json:"tenantId"`
	Config    deeplink.AppLinkConfig `json:"config"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, channel: cfg.Listener.Channel}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const selectConfigs = `SELECT tenant_id::text, config, updated_at FROM app_link_configs`

// LoadAppLinkConfigs loads every tenant's configuration.
func (s *Store) LoadAppLinkConfigs(ctx context.Context) ([]TenantConfigRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectConfigs+` ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("query app link configs: %w", err)
	}
	defer rows.Close()

	var out []TenantConfigRow
	for rows.Next() {
		row, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAppLinkConfig returns ErrNotFound when the tenant has no record.
func (s *Store) GetAppLinkConfig(ctx context.Context, tenantID uuid.UUID) (TenantConfigRow, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	row, err := scanConfig(s.pool.QueryRow(ctx, selectConfigs+` WHERE tenant_id = $1`, tenantID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return TenantConfigRow{}, fmt.Errorf("tenant %s: %w", tenantID, ErrNotFound)
	}
	return row, err
}

// UpsertAppLinkConfig stores a tenant's configuration and notifies
// listeners in the same transaction.
func (s *Store) UpsertAppLinkConfig(ctx context.Context, tenantID uuid.UUID, cfg deeplink.AppLinkConfig) error {
	if err := deeplink.ValidateConfig(cfg); err != nil {
		return err
	}
	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO app_link_configs (tenant_id, config, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at
	`, tenantID.String(), string(doc))
	if err != nil {
		return fmt.Errorf("upsert app link config: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, s.ListenChannel(), tenantID.String()); err != nil {
		return fmt.Errorf("notify config change: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanConfig(r pgx.Row) (TenantConfigRow, error) {
	var (
		id  string
		doc []byte
		row TenantConfigRow
	)
	if err := r.Scan(&id, &doc, &row.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return row, err
		}
		return row, fmt.Errorf("scan row: %w", err)
	}
	tid, err := uuid.Parse(id)
	if err != nil {
		return row, fmt.Errorf("tenant id %q: %w", id, err)
	}
	row.TenantID = tid
	if err := json.Unmarshal(doc, &row.Config); err != nil {
		return row, fmt.Errorf("decode config for %s: %w", id, err)
	}
	return row, nil
}

func (s *Store) ListenChannel() string {
	if s.channel == "" {
		return "app_link_config_change"
	}
	return s.channel
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
