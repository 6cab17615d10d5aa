package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
	"github.com/sirupsen/logrus"
)

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"field":          "slow_report",
		"name":           name,
		"ms":             d.Milliseconds(),
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("report exceeded the slow threshold")
}

func cacheGet[T any](key string, dest *T) (bool, error) {
	return config.GetRedisObject(key, dest)
}

func cacheSet(key string, obj any, ttl time.Duration) error {
	return config.SetRedisObject(key, obj, ttl)
}

// cached serves key from redis when the report cache is on, otherwise runs load directly.
func cached[T any](key string, load func() (T, error)) (T, error) {
	if !config.ReportCacheEnabled() {
		return load()
	}
	var hit T
	if ok, err := cacheGet(key, &hit); err == nil && ok {
		return hit, nil
	}
	result, err := load()
	if err != nil {
		return result, err
	}
	if err := cacheSet(key, result, config.ReportCacheTTL()); err != nil {
		config.LogWarning(config.GetLogger(), "reports", "cached", "cache write failed: "+err.Error(), key)
	}
	return result, nil
}

// InvalidateDashboard drops the cached dashboard; ledger writers call it after commit.
func InvalidateDashboard() error {
	return config.RemoveRedisKey(dashboardCacheKey)
}
