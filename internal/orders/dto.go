package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product/quantity pair from the external cart.
type CartLine struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// Coupon is the discount applied to a build. Value is an absolute amount;
// the aggregator caps it at the items subtotal.
type Coupon struct {
	Code  string
	Value decimal.Decimal
}

// BuildInput carries everything the aggregator needs to assemble an order.
type BuildInput struct {
	Lines              []CartLine
	ShippingMethodCode string
	Jurisdiction       string
	Coupon             *Coupon
	Currency           string
}
