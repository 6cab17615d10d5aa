package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	ErrorRecordNotFound = errors.New("record not found")

	ErrValidation              = errors.New("validation error")
	ErrInvalidReference        = errors.New("invalid reference")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrOverpayment             = errors.New("overpayment")
	ErrDuplicateIdentifier     = errors.New("duplicate identifier")
	ErrDuplicateIdentifierRace = errors.New("identifier taken concurrently, retry with a fresh id")
	ErrHasStockOrHistory       = errors.New("has stock or transaction history")
	ErrOutstandingBalance      = errors.New("outstanding balance")
)

func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func InvalidReferenceError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidReference, fmt.Sprintf(format, args...))
}

func InsufficientStockError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInsufficientStock, fmt.Sprintf(format, args...))
}

func OverpaymentError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOverpayment, fmt.Sprintf(format, args...))
}

func DuplicateIdentifierError(id string) error {
	return fmt.Errorf("%w: %s already exists", ErrDuplicateIdentifier, id)
}

func HasStockOrHistoryError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrHasStockOrHistory, fmt.Sprintf(format, args...))
}

func OutstandingBalanceError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutstandingBalance, fmt.Sprintf(format, args...))
}

func NotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %s", ErrorRecordNotFound, resource, id)
}

// IsDuplicateKeyError reports whether err is a unique/primary key violation
// raised by MySQL (1062) or SQLite.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}

// TranslateWriteError maps storage uniqueness violations to ErrDuplicateIdentifierRace.
func TranslateWriteError(err error, id string) error {
	if IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifierRace, id)
	}
	return err
}
