package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/simsfs/inventory_backend/config"
	"github.com/simsfs/inventory_backend/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const maxIdentifierAttempts = 3

var tracer = otel.Tracer("inventory_backend/models")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok && cid != "" {
		attrs = append(attrs, attribute.String("correlation_id", cid))
	}
	if username, ok := utils.GetUsernameFromContext(ctx); ok && username != "" {
		attrs = append(attrs, attribute.String("username", username))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isNotFound(err error) bool {
	return errors.Is(err, utils.ErrorRecordNotFound)
}

// runInTransaction executes fn in a single DB transaction.
// Any error or panic rolls back every write fn made.
func runInTransaction(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	// always rollback on early-return or panic to avoid leaking row locks
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() {
		if err != nil {
			_ = tx.Rollback().Error
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit().Error
}

// withIdentifierRetry reruns a create whose identifier was generated by us
// when a concurrent writer took the same identifier first.
func withIdentifierRetry(ctx context.Context, entity EntityClass, generated bool, fn func() error) error {
	series := lockedSeries(entity)
	var err error
	for attempt := 1; attempt <= maxIdentifierAttempts; attempt++ {
		err = utils.WithSeriesLocks(ctx, series, fn)
		if err == nil || !generated || !errors.Is(err, utils.ErrDuplicateIdentifierRace) {
			return err
		}
		config.LogWarning(config.GetLogger(), "models", "withIdentifierRetry",
			fmt.Sprintf("identifier race on attempt %d, retrying", attempt), entity)
	}
	return err
}

// lockedSeries names every identifier series a write to entity may allocate from.
// Order writes also allocate document and detail ids; in the shared detail scheme
// purchase and sales writes both lock the D series.
func lockedSeries(entity EntityClass) []string {
	entities := []EntityClass{entity}
	switch entity {
	case EntityPurchaseOrder:
		entities = append(entities, EntityBill, EntityPurchaseDetail)
	case EntitySalesOrder:
		entities = append(entities, EntityInvoice, EntitySalesDetail)
	}
	series := make([]string, 0, len(entities))
	for _, e := range entities {
		s, err := seriesFor(e)
		if err != nil {
			series = append(series, string(e))
			continue
		}
		series = append(series, s.Prefix)
	}
	return series
}
