package pricing

import "github.com/shopspring/decimal"

// Aggregates are the order-level amounts to spread over lines.
type Aggregates struct {
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Gratuity decimal.Decimal
}

// Allocation is one line's share of the order aggregates.
type Allocation struct {
	Gross    decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Gratuity decimal.Decimal
	Net      decimal.Decimal // gross − discount
}

// Allocate distributes each aggregate over lines in proportion to their gross
// value. Shares are rounded to 2 decimals and the last line absorbs the
// remainder, so summing the allocations reproduces the aggregates. No line is
// allocated more discount than its own gross value.
func Allocate(gross []decimal.Decimal, agg Aggregates) []Allocation {
	out := make([]Allocation, len(gross))
	if len(gross) == 0 {
		return out
	}

	discounts := spread(agg.Discount, gross, true)
	taxes := spread(agg.Tax, gross, false)
	gratuities := spread(agg.Gratuity, gross, false)

	for i, g := range gross {
		out[i] = Allocation{
			Gross:    g,
			Discount: discounts[i],
			Tax:      taxes[i],
			Gratuity: gratuities[i],
			Net:      g.Sub(discounts[i]),
		}
	}
	return out
}

func spread(total decimal.Decimal, weights []decimal.Decimal, capAtWeight bool) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	last := len(weights) - 1

	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}

	allocated := decimal.Zero
	if sum.IsPositive() {
		for i := 0; i < last; i++ {
			share := total.Mul(weights[i]).Div(sum).Round(2)
			if capAtWeight && share.GreaterThan(weights[i]) {
				share = weights[i]
			}
			shares[i] = share
			allocated = allocated.Add(share)
		}
	}

	rest := total.Sub(allocated)
	if capAtWeight && rest.GreaterThan(weights[last]) {
		rest = weights[last]
	}
	if rest.IsNegative() {
		rest = decimal.Zero
	}
	shares[last] = rest
	return shares
}
