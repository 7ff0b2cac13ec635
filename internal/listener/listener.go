package listener

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"deeplink-engine/internal/registry"
	"deeplink-engine/internal/storage"
)

const debounce = 200 * time.Millisecond

// ListenAndRefresh rebuilds the registry whenever a tenant configuration
// changes, until ctx is cancelled. Connection failures are retried with
// jittered backoff.
func ListenAndRefresh(ctx context.Context, st *storage.Store, reg *registry.Registry, channel string, baseBackoff time.Duration) {
	if channel == "" {
		channel = st.ListenChannel()
	}
	for {
		err := listen(ctx, st, reg, channel)
		if ctx.Err() != nil {
			log.Info().Msg("listener stopped")
			return
		}
		backoff := jitter(baseBackoff)
		log.Error().Err(err).Str("channel", channel).Dur("retry_in", backoff).Msg("listener disconnected")
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		case <-time.After(backoff):
		}
	}
}

func listen(ctx context.Context, st *storage.Store, reg *registry.Registry, channel string) error {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+quoteIdent(channel)); err != nil {
		return err
	}
	log.Info().Str("channel", channel).Msg("listening for config changes")

	// catch changes made while disconnected
	refresh(ctx, st, reg)

	var lastRefresh time.Time
	pending := false
	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if pending {
			waitCtx, cancel = context.WithTimeout(ctx, remaining(lastRefresh, time.Now()))
		}
		ntf, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if pending && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				// trailing refresh for changes swallowed by the debounce
				pending = false
				lastRefresh = time.Now()
				refresh(ctx, st, reg)
				continue
			}
			return err
		}
		if remaining(lastRefresh, time.Now()) > 0 {
			pending = true
			continue
		}
		pending = false
		lastRefresh = time.Now()
		log.Info().Str("channel", ntf.Channel).Str("tenant", ntf.Payload).Msg("config change; refreshing snapshot")
		refresh(ctx, st, reg)
	}
}

func refresh(ctx context.Context, st *storage.Store, reg *registry.Registry) {
	if err := reg.BuildSnapshot(ctx, st); err != nil {
		log.Error().Err(err).Msg("refresh snapshot error")
	}
}

// remaining is how much of the debounce window after last is left at now.
func remaining(last, now time.Time) time.Duration {
	if d := debounce - now.Sub(last); d > 0 {
		return d
	}
	return 0
}

func quoteIdent(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, s[i])
	}
	return string(append(out, '"'))
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x–1.5x
	return time.Duration(float64(base) * factor)
}
