package tracking

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OpenCounts is the number of landing-page opens per platform label.
type OpenCounts struct {
	IOS     int64 `json:"ios"`
	Android int64 `json:"android"`
	Web     int64 `json:"web"`
}

// Client is the subset of *redis.Client the tracker uses.
type Client interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// Tracker counts landing-page opens in Redis.
type Tracker struct {
	client Client
	prefix string
	ttl    time.Duration
}

func NewTracker(client Client, prefix string, ttl time.Duration) *Tracker {
	return &Tracker{client: client, prefix: prefix, ttl: ttl}
}

// NewClient connects to the Redis instance at url.
func NewClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// key escapes productID so a ":" in it cannot shift the platform segment.
func (t *Tracker) key(tenantID uuid.UUID, productID, platform string) string {
	return t.prefix + ":opens:" + tenantID.String() + ":" + url.QueryEscape(productID) + ":" + platform
}

// RecordOpen increments the counter for platform ("ios", "android", "web")
// and refreshes its TTL.
func (t *Tracker) RecordOpen(ctx context.Context, tenantID uuid.UUID, productID, platform string) error {
	key := t.key(tenantID, productID, platform)
	if err := t.client.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", key, err)
	}
	if t.ttl > 0 {
		if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
			return fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return nil
}

func (t *Tracker) Counts(ctx context.Context, tenantID uuid.UUID, productID string) (OpenCounts, error) {
	vals, err := t.client.MGet(ctx,
		t.key(tenantID, productID, "ios"),
		t.key(tenantID, productID, "android"),
		t.key(tenantID, productID, "web"),
	).Result()
	if err != nil {
		return OpenCounts{}, fmt.Errorf("read open counts: %w", err)
	}

	n := make([]int64, 3)
	for i := range n {
		if i >= len(vals) || vals[i] == nil {
			continue
		}
		s, ok := vals[i].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return OpenCounts{}, fmt.Errorf("parse open count %q: %w", s, err)
		}
		n[i] = v
	}
	return OpenCounts{IOS: n[0], Android: n[1], Web: n[2]}, nil
}
