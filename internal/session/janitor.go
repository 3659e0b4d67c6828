package session

import (
	"context"
	"time"

	"socialapi/internal/logging"
)

// Cleaner deletes expired rows and reports how many went.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// RunJanitor calls every cleaner once per interval until ctx is done.
func RunJanitor(ctx context.Context, interval time.Duration, log logging.Logger, cleaners map[string]Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx, log, cleaners)
		}
	}
}

func sweep(ctx context.Context, log logging.Logger, cleaners map[string]Cleaner) {
	for name, c := range cleaners {
		n, err := c.CleanupExpired(ctx)
		if err != nil {
			log.Error(ctx, "cleanup expired rows failed", "table", name, "error", err)
			continue
		}
		if n > 0 {
			log.Info(ctx, "cleaned up expired rows", "table", name, "count", n)
		}
	}
}
