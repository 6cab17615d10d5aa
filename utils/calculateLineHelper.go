package utils

import (
	"github.com/shopspring/decimal"
)

var decimalOneHundred = decimal.NewFromInt(100)

// LineAmounts is the derived money chain of one order line.
type LineAmounts struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	PriceWithTax decimal.Decimal `json:"price_with_tax"`
	ShippingFee  decimal.Decimal `json:"shipping_fee"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// Tax-exclusive: (subtotal * taxRate) / 100
func CalculateTaxAmount(subtotal decimal.Decimal, taxRate decimal.Decimal) decimal.Decimal {
	if !taxRate.IsPositive() {
		return decimal.Zero
	}
	return subtotal.Mul(taxRate).Div(decimalOneHundred)
}

// CalculateLineAmounts runs qty x price through tax and the shipping surcharge.
// Only the line total is rounded (2 dp); header totals are sums of rounded line totals.
func CalculateLineAmounts(qty int, unitPrice decimal.Decimal, taxRate decimal.Decimal, shippingRate decimal.Decimal) LineAmounts {
	subtotal := decimal.NewFromInt(int64(qty)).Mul(unitPrice)
	tax := CalculateTaxAmount(subtotal, taxRate)
	priceWithTax := subtotal.Add(tax)
	shippingFee := priceWithTax.Mul(shippingRate)
	return LineAmounts{
		Subtotal:     subtotal,
		Tax:          tax,
		PriceWithTax: priceWithTax,
		ShippingFee:  shippingFee,
		LineTotal:    priceWithTax.Add(shippingFee).Round(2),
	}
}
