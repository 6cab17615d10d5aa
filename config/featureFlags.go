package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type DetailIdScheme string

const (
	// DetailIdSchemeDisjoint numbers purchase lines PD##### and sales lines SD##### independently.
	DetailIdSchemeDisjoint DetailIdScheme = "disjoint"
	// DetailIdSchemeShared numbers both detail tables from one global D##### counter.
	DetailIdSchemeShared DetailIdScheme = "shared"
)

// GetDetailIdScheme selects how order-line identifiers are generated.
//
// Set via env:
// - DETAIL_ID_SCHEME=disjoint (default) | shared
func GetDetailIdScheme() DetailIdScheme {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("DETAIL_ID_SCHEME")), string(DetailIdSchemeShared)) {
		return DetailIdSchemeShared
	}
	return DetailIdSchemeDisjoint
}

type StockItemDeleteGuard string

const (
	// StockItemDeleteGuardStrict refuses deletion unless purchased and sold are both zero.
	StockItemDeleteGuardStrict StockItemDeleteGuard = "strict"
	// StockItemDeleteGuardRemaining only requires quantity_remaining to be zero.
	StockItemDeleteGuardRemaining StockItemDeleteGuard = "remaining"
)

// GetStockItemDeleteGuard
//
// Set via env:
// - STOCK_ITEM_DELETE_GUARD=strict (default) | remaining
func GetStockItemDeleteGuard() StockItemDeleteGuard {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("STOCK_ITEM_DELETE_GUARD")), string(StockItemDeleteGuardRemaining)) {
		return StockItemDeleteGuardRemaining
	}
	return StockItemDeleteGuardStrict
}

// RederiveStatusOnDetailDelete controls whether deleting a single order line
// re-runs status derivation on its order. Defaults to true.
//
// Set via env:
// - REDERIVE_STATUS_ON_DETAIL_DELETE=false to keep the legacy behaviour
func RederiveStatusOnDetailDelete() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("REDERIVE_STATUS_ON_DETAIL_DELETE")))
	return !(v == "0" || v == "false" || v == "no" || v == "n")
}

// DefaultPhoneRegion is the region used to parse contact numbers without a country prefix.
func DefaultPhoneRegion() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_PHONE_REGION")))
	if v == "" {
		return "KE"
	}
	return v
}

func ReportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

// ReportCacheTTL Env: REPORT_CACHE_TTL_SECONDS (default 120s)
func ReportCacheTTL() time.Duration {
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}
