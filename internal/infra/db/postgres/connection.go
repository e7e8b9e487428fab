// File: internal/infra/db/postgres/connection.go
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"personal-ai-assistant/internal/infra/metrics"
)

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// StartPoolStatsReporter feeds pool gauges until ctx is cancelled.
func StartPoolStatsReporter(ctx context.Context, pool *pgxpool.Pool, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()
}
