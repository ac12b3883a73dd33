package database

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// SweepResult reports what one reconciliation pass removed.
type SweepResult struct {
	OrphansDeleted        int64 `json:"orphans_deleted"`
	IdempotencyKeysPurged int64 `json:"idempotency_keys_purged"`
}

// OrphanSweeper deletes response headers left without items (older than a
// grace period) and expired idempotency keys.
type OrphanSweeper struct {
	store    *Store
	grace    time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewOrphanSweeper(store *Store, grace, interval time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		store:    store,
		grace:    grace,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrphanSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()

	n, err := s.store.DeleteOrphanHeaders(ctx, now.Add(-s.grace))
	if err != nil {
		return res, fmt.Errorf("sweep orphans: %w", err)
	}
	res.OrphansDeleted = n

	n, err = s.store.PurgeExpiredIdempotencyKeys(ctx, now)
	if err != nil {
		return res, fmt.Errorf("sweep idempotency keys: %w", err)
	}
	res.IdempotencyKeysPurged = n
	return res, nil
}

// Run sweeps every interval until ctx is done. A zero interval disables it.
func (s *OrphanSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.SweepOnce(ctx)
			if err != nil {
				log.WithError(err).Error("sweep failed")
				continue
			}
			if res.OrphansDeleted > 0 || res.IdempotencyKeysPurged > 0 {
				log.WithFields(log.Fields{
					"orphans_deleted":         res.OrphansDeleted,
					"idempotency_keys_purged": res.IdempotencyKeysPurged,
				}).Info("sweep completed")
			}
		}
	}
}
