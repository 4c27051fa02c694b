// Package pricing turns a cart into a priced order and spreads order-level
// aggregates back onto lines for reporting. Nothing here touches the database.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scope says what a discount applies to.
type Scope string

const (
	ScopeMenu  Scope = "MENU"
	ScopeTotal Scope = "TOTAL"
)

// Kind says how a discount value is interpreted.
type Kind string

const (
	KindPercentage Kind = "PERCENTAGE"
	KindFixed      Kind = "FIXED"
)

var hundred = decimal.NewFromInt(100)

// Discount is an active discount rule as read inside the order transaction.
type Discount struct {
	ID    uuid.UUID
	Scope Scope
	Kind  Kind
	Value decimal.Decimal
}

// LineDiscount resolves a MENU-scoped discount for one line.
// PERCENTAGE applies to the base price only (modifiers are not discounted),
// FIXED applies per unit. The result is clamped to [0, unitPrice × quantity].
func LineDiscount(d *Discount, basePrice, unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	if d == nil || d.Scope != ScopeMenu {
		return decimal.Zero
	}
	qty := decimal.NewFromInt32(quantity)

	var amount decimal.Decimal
	switch d.Kind {
	case KindPercentage:
		amount = d.Value.Div(hundred).Mul(basePrice).Mul(qty)
	case KindFixed:
		amount = d.Value.Mul(qty)
	default:
		return decimal.Zero
	}
	return clamp(amount.Round(2), decimal.Zero, unitPrice.Mul(qty))
}

// OrderDiscount resolves the TOTAL-scoped discount against the
// post-item-discount subtotal, clamped so it never exceeds that base.
func OrderDiscount(d *Discount, base decimal.Decimal) decimal.Decimal {
	if d == nil || d.Scope != ScopeTotal || !base.IsPositive() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch d.Kind {
	case KindPercentage:
		amount = base.Mul(d.Value).Div(hundred)
	case KindFixed:
		amount = d.Value
	default:
		return decimal.Zero
	}
	return clamp(amount.Round(2), decimal.Zero, base)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
