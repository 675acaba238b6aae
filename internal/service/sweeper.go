package service

import (
	"context"
	"time"

	"github.com/iliyamo/account-service/internal/token"
)

// RunRevocationSweeper purges expired revocation entries every interval
// until ctx is cancelled.
func RunRevocationSweeper(ctx context.Context, store token.RevocationStore, interval time.Duration, log Logger) {
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := store.Sweep(ctx, now.UTC())
			if err != nil {
				log.Errorf("revocation sweep: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("revocation sweep removed %d entries", n)
			}
		}
	}
}
