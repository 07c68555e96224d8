package cart

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the subtotal from which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(50)
	// ShippingCost is charged below FreeShippingThreshold, including on an
	// empty cart.
	ShippingCost = decimal.RequireFromString("5.99")
)

// ShippingFor returns the shipping charge for a subtotal.
func ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return ShippingCost
}

// RemainingForFreeShipping is how much more must be spent to reach the
// free shipping threshold, never negative.
func RemainingForFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	rest := FreeShippingThreshold.Sub(subtotal)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

// Summary is the derived pricing of a cart at one point in time.
type Summary struct {
	Lines                    []Line          `json:"items"`
	ItemCount                int             `json:"itemCount"`
	Subtotal                 decimal.Decimal `json:"subtotal"`
	Shipping                 decimal.Decimal `json:"shipping"`
	Total                    decimal.Decimal `json:"total"`
	RemainingForFreeShipping decimal.Decimal `json:"remainingForFreeShipping"`
}

// Summarize derives item count, subtotal, shipping and total from lines.
func Summarize(lines []Line) Summary {
	s := Summary{Lines: lines, Subtotal: decimal.Zero}
	for _, l := range lines {
		s.ItemCount += l.Quantity
		s.Subtotal = s.Subtotal.Add(l.LineTotal())
	}
	s.Shipping = ShippingFor(s.Subtotal)
	s.Total = s.Subtotal.Add(s.Shipping)
	s.RemainingForFreeShipping = RemainingForFreeShipping(s.Subtotal)
	return s
}
