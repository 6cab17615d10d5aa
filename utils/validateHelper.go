package utils

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// share the tag set with gin's binding
	validate.SetTagName("binding")
}

// ValidateStruct runs the binding tags of input and returns a single ErrValidation
// listing every failing field.
func ValidateStruct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ValidationError("%v", err)
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
	}
	return ValidationError("invalid fields: %s", strings.Join(fields, ", "))
}

// MoneyPlaces is the scale of every stored amount, price and rate column.
const MoneyPlaces = 2

// ValidateScale rejects values carrying more decimal places than their column stores.
func ValidateScale(field string, value decimal.Decimal, places int32) error {
	if !value.Equal(value.Round(places)) {
		return ValidationError("%s %s has more than %d decimal places", field, value.String(), places)
	}
	return nil
}

func ProcessValidationErrors(err error) map[string]string {
	errorResponse := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorResponse
	}
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// check if a row with column = value exists, returns ErrorRecordNotFound otherwise
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, column string, value interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, column+" = ?", value)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, db *gorm.DB, column string, value interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, column+" = ?", value)
	if err != nil {
		return err
	}
	if count > 0 {
		return ValidationError("duplicate %s %v", column, value)
	}
	return nil
}

// count records, using WHERE $condition
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
