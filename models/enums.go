package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// SettlementStatus is used for both payment_status (purchases) and receipt_status (sales).
type SettlementStatus string

const (
	SettlementStatusPending        SettlementStatus = "PENDING"
	SettlementStatusPartialPayment SettlementStatus = "PARTIAL PAYMENT"
	SettlementStatusCompleted      SettlementStatus = "COMPLETED"
)

var AllSettlementStatuses = []SettlementStatus{
	SettlementStatusPending,
	SettlementStatusPartialPayment,
	SettlementStatusCompleted,
}

func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementStatusPending, SettlementStatusPartialPayment, SettlementStatusCompleted:
		return true
	}
	return false
}

func (s SettlementStatus) String() string {
	return string(s)
}

func (s *SettlementStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	if err != nil {
		return err
	}
	*s = SettlementStatus(str)
	return nil
}

func (s SettlementStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type ShippingStatus string

const (
	ShippingStatusPending    ShippingStatus = "PENDING"
	ShippingStatusProcessing ShippingStatus = "PROCESSING"
	ShippingStatusDispatched ShippingStatus = "DISPATCHED"
	ShippingStatusInTransit  ShippingStatus = "IN TRANSIT"
	ShippingStatusDelivered  ShippingStatus = "DELIVERED"
)

var AllShippingStatuses = []ShippingStatus{
	ShippingStatusPending,
	ShippingStatusProcessing,
	ShippingStatusDispatched,
	ShippingStatusInTransit,
	ShippingStatusDelivered,
}

func (s ShippingStatus) IsValid() bool {
	switch s {
	case ShippingStatusPending, ShippingStatusProcessing, ShippingStatusDispatched,
		ShippingStatusInTransit, ShippingStatusDelivered:
		return true
	}
	return false
}

func (s ShippingStatus) String() string {
	return string(s)
}

func (s *ShippingStatus) Scan(value interface{}) error {
	str, err := scanString(value)
	if err != nil {
		return err
	}
	*s = ShippingStatus(str)
	return nil
}

func (s ShippingStatus) Value() (driver.Value, error) {
	return string(s), nil
}

type ReorderFlag string

const (
	ReorderFlagYes ReorderFlag = "YES"
	ReorderFlagNo  ReorderFlag = "NO"
)

func reorderFlagOf(required bool) ReorderFlag {
	if required {
		return ReorderFlagYes
	}
	return ReorderFlagNo
}

func (f *ReorderFlag) Scan(value interface{}) error {
	str, err := scanString(value)
	if err != nil {
		return err
	}
	*f = ReorderFlag(str)
	return nil
}

func (f ReorderFlag) Value() (driver.Value, error) {
	return string(f), nil
}

func scanString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", errors.New(fmt.Sprint("unexpected enum value type: ", value))
	}
}
