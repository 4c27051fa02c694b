package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one cart line with catalog prices already resolved.
type Line struct {
	MenuID         uuid.UUID
	BasePrice      decimal.Decimal
	ModifierPrices []decimal.Decimal
	Quantity       int32
	// Discount is the menu's active MENU-scoped discount, if any.
	Discount *Discount
}

// Rates holds the active tax and gratuity percentages (10 means 10%).
type Rates struct {
	TaxRate      decimal.Decimal
	GratuityRate decimal.Decimal
}

// PricedLine is the forward-priced view of a Line.
type PricedLine struct {
	UnitPrice decimal.Decimal // base + modifiers
	Gross     decimal.Decimal // unit price × quantity
	Discount  decimal.Decimal
	Net       decimal.Decimal
}

// PricedOrder holds every computed amount of an order.
type PricedOrder struct {
	Lines              []PricedLine
	Subtotal           decimal.Decimal
	ItemDiscount       decimal.Decimal
	OrderDiscount      decimal.Decimal
	TotalDiscount      decimal.Decimal
	TaxableBase        decimal.Decimal
	TaxRate            decimal.Decimal
	TaxAmount          decimal.Decimal
	GratuityRate       decimal.Decimal
	GratuityAmount     decimal.Decimal
	RawTotal           decimal.Decimal
	FinalTotal         decimal.Decimal
	RoundingAdjustment decimal.Decimal
}

// Price computes subtotal, discounts, tax, gratuity and the rounded total.
//
// Order of operations:
//
//	subtotal    = Σ unitPrice × qty
//	discount    = Σ line discounts + order discount (on subtotal − line discounts)
//	taxableBase = subtotal − discount
//	tax         = round(taxableBase × taxRate%)       whole units
//	gratuity    = round(taxableBase × gratuityRate%)  whole units
//	rawTotal    = ceil(taxableBase + tax + gratuity)  whole units
//	final       = rawTotal up to the next hundred
//	rounding    = final − rawTotal                    in [0, 99]
func Price(lines []Line, orderDiscount *Discount, rates Rates) PricedOrder {
	out := PricedOrder{
		Lines:        make([]PricedLine, len(lines)),
		TaxRate:      rates.TaxRate,
		GratuityRate: rates.GratuityRate,
	}

	for i, l := range lines {
		unit := l.BasePrice
		for _, mp := range l.ModifierPrices {
			unit = unit.Add(mp)
		}
		unit = unit.Round(2)
		gross := unit.Mul(decimal.NewFromInt32(l.Quantity)).Round(2)
		disc := LineDiscount(l.Discount, l.BasePrice, unit, l.Quantity)

		out.Lines[i] = PricedLine{
			UnitPrice: unit,
			Gross:     gross,
			Discount:  disc,
			Net:       gross.Sub(disc),
		}
		out.Subtotal = out.Subtotal.Add(gross)
		out.ItemDiscount = out.ItemDiscount.Add(disc)
	}

	out.OrderDiscount = OrderDiscount(orderDiscount, out.Subtotal.Sub(out.ItemDiscount))
	out.TotalDiscount = out.ItemDiscount.Add(out.OrderDiscount)
	out.TaxableBase = out.Subtotal.Sub(out.TotalDiscount)

	out.TaxAmount = percentOf(out.TaxableBase, rates.TaxRate).Round(0)
	out.GratuityAmount = percentOf(out.TaxableBase, rates.GratuityRate).Round(0)

	// Fractional minor units are rounded up so the total never drops below net.
	out.RawTotal = out.TaxableBase.Add(out.TaxAmount).Add(out.GratuityAmount).Ceil()
	out.FinalTotal = CeilToHundred(out.RawTotal)
	out.RoundingAdjustment = out.FinalTotal.Sub(out.RawTotal)
	return out
}

// CeilToHundred rounds v up to the next multiple of 100.
func CeilToHundred(v decimal.Decimal) decimal.Decimal {
	return v.Div(hundred).Ceil().Mul(hundred)
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(rate).Div(hundred)
}
