package utils

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// fetch model by its string key
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, db *gorm.DB, column string, id string, associations ...string) (*T, error) {
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where(column+" = ?", id).First(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError(column, id)
		}
		return nil, err
	}
	return &result, nil
}

// FetchModelForUpdate is FetchModel with a SELECT ... FOR UPDATE row lock;
// tx must be an open transaction.
func FetchModelForUpdate[T any](ctx context.Context, tx *gorm.DB, column string, id string, associations ...string) (*T, error) {
	return FetchModel[T](ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), column, id, associations...)
}
