package models

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simsfs/inventory_backend/utils"
	"gorm.io/gorm"
)

var (
	purchaseShippingRate = decimal.NewFromFloat(0.01)
	salesShippingRate    = decimal.NewFromFloat(0.02)
	maxTaxRate           = decimal.NewFromInt(100)
)

// NewOrderLine is one submitted order line.
// On create DetailId optionally fixes the new line id; on edit it names the existing line to change.
type NewOrderLine struct {
	DetailId  string          `json:"detail_id" binding:"omitempty,max=20"`
	ItemId    string          `json:"item_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

func (line NewOrderLine) validate() error {
	if line.UnitPrice.IsNegative() {
		return utils.ValidationError("line %s: unit price must not be negative", line.ItemId)
	}
	if line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(maxTaxRate) {
		return utils.ValidationError("line %s: tax rate must be between 0 and 100", line.ItemId)
	}
	if err := utils.ValidateScale("line "+line.ItemId+": unit price", line.UnitPrice, utils.MoneyPlaces); err != nil {
		return err
	}
	return utils.ValidateScale("line "+line.ItemId+": tax rate", line.TaxRate, utils.MoneyPlaces)
}

func validateOrderLines(lines []NewOrderLine) error {
	seen := make(map[string]bool)
	for _, line := range lines {
		if err := line.validate(); err != nil {
			return err
		}
		if line.DetailId == "" {
			continue
		}
		if seen[line.DetailId] {
			return utils.ValidationError("order line %s submitted twice", line.DetailId)
		}
		seen[line.DetailId] = true
	}
	return nil
}

// generatesLineIds reports whether any line leaves its detail id to the generator.
func generatesLineIds(lines []NewOrderLine) bool {
	for _, line := range lines {
		if line.DetailId == "" {
			return true
		}
	}
	return false
}

// keepStoredPrice carries the stored unit price onto an edited line that names
// the same item without a price, so editing other fields never reprices it.
func keepStoredPrice(line NewOrderLine, storedItemId string, storedPrice decimal.Decimal) NewOrderLine {
	if line.UnitPrice.IsZero() && line.ItemId == storedItemId {
		line.UnitPrice = storedPrice
	}
	return line
}

type orderSide int

const (
	purchaseSide orderSide = iota
	salesSide
)

func (side orderSide) shippingRate() decimal.Decimal {
	if side == purchaseSide {
		return purchaseShippingRate
	}
	return salesShippingRate
}

func (side orderSide) detailEntity() EntityClass {
	if side == purchaseSide {
		return EntityPurchaseDetail
	}
	return EntitySalesDetail
}

// priceLine runs the line through the amount chain. A zero unit price falls back to the catalogue price.
func (side orderSide) priceLine(item *StockItem, line NewOrderLine) (decimal.Decimal, utils.LineAmounts) {
	unitPrice := line.UnitPrice
	if unitPrice.IsZero() {
		if side == purchaseSide {
			unitPrice = item.PurchasePrice
		} else {
			unitPrice = item.SalePrice
		}
	}
	return unitPrice, utils.CalculateLineAmounts(line.Quantity, unitPrice, line.TaxRate, side.shippingRate())
}

// stockMovement is one ledger effect of an order line.
// reverse=false is receive/issue, reverse=true is reverseReceive/reverseIssue.
type stockMovement struct {
	ItemId  string
	Qty     int
	Reverse bool
}

// restoresStock reports whether the movement increases quantity_remaining.
func (m stockMovement) restoresStock(side orderSide) bool {
	if side == purchaseSide {
		return !m.Reverse
	}
	return m.Reverse
}

// lineMovements is the minimal net ledger change turning (oldItem, oldQty) into (newItem, newQty).
// An empty item id stands for "no line".
func lineMovements(oldItem string, oldQty int, newItem string, newQty int) []stockMovement {
	var movements []stockMovement
	if oldItem != newItem {
		if oldItem != "" && oldQty > 0 {
			movements = append(movements, stockMovement{ItemId: oldItem, Qty: oldQty, Reverse: true})
		}
		if newItem != "" && newQty > 0 {
			movements = append(movements, stockMovement{ItemId: newItem, Qty: newQty})
		}
		return movements
	}
	switch delta := newQty - oldQty; {
	case delta > 0:
		movements = append(movements, stockMovement{ItemId: newItem, Qty: delta})
	case delta < 0:
		movements = append(movements, stockMovement{ItemId: newItem, Qty: -delta, Reverse: true})
	}
	return movements
}

// applyMovements posts every movement to the ledger. Stock-restoring movements go first
// so re-allocations inside one order never fail on an intermediate shortfall.
func applyMovements(ctx context.Context, tx *gorm.DB, side orderSide, movements []stockMovement) error {
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].restoresStock(side) && !movements[j].restoresStock(side)
	})
	for _, m := range movements {
		if m.Qty == 0 {
			continue
		}
		item, err := lockStockItem(ctx, tx, m.ItemId)
		if err != nil {
			return err
		}
		switch {
		case side == purchaseSide && !m.Reverse:
			err = receiveStock(tx, item, m.Qty)
		case side == purchaseSide && m.Reverse:
			err = reverseReceive(tx, item, m.Qty)
		case side == salesSide && !m.Reverse:
			err = issueStock(tx, item, m.Qty)
		default:
			err = reverseIssue(tx, item, m.Qty)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// newLineId returns the submitted detail id after a collision check, or the next generated one.
func newLineId(tx *gorm.DB, side orderSide, detailId string) (string, error) {
	if detailId == "" {
		return nextIdTx(tx, side.detailEntity())
	}
	taken, err := identifierTaken(tx, side.detailEntity(), detailId)
	if err != nil {
		return "", err
	}
	if taken {
		return "", utils.DuplicateIdentifierError(detailId)
	}
	return detailId, nil
}
