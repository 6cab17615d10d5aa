package utils

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/simsfs/inventory_backend/config"
)

const seriesLockTTL = 15 * time.Second

// WithSeriesLocks serializes identifier allocation for every named series across processes.
// Locks are taken in sorted order so two writers sharing a series never deadlock.
// Redis is best-effort here: without a locker fn runs unguarded and the storage
// unique constraint remains the backstop.
func WithSeriesLocks(ctx context.Context, series []string, fn func() error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return fn()
	}
	keys := UniqueSlice(series)
	sort.Strings(keys)
	for _, s := range keys {
		lockKey := fmt.Sprintf("idseries:%s", s)
		lock, err := locker.Obtain(ctx, lockKey, seriesLockTTL, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 100),
		})
		if errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(config.GetLogger(), "utils", "WithSeriesLocks", "could not obtain series lock", s, err)
			return fmt.Errorf("%w: series %s is busy", ErrDuplicateIdentifierRace, s)
		} else if err != nil {
			return err
		}
		defer func() {
			_ = lock.Release(ctx)
		}()
	}
	return fn()
}
