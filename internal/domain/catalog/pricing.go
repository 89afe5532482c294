package catalog

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// NetPrice returns the unit price after the product discount. A positive
// percentage discount wins over a fixed amount. The result never drops below
// zero and is rounded to two decimal places.
func (p *Product) NetPrice() decimal.Decimal {
	price := p.Price
	switch {
	case p.DiscountPercentage.IsPositive():
		price = price.Sub(price.Mul(p.DiscountPercentage).Div(hundred))
	case p.DiscountAmount.IsPositive():
		price = price.Sub(p.DiscountAmount)
	}
	return floorAtZero(price).Round(2)
}

// HasDiscount reports whether NetPrice is below the list price.
func (p *Product) HasDiscount() bool {
	return p.NetPrice().LessThan(p.Price)
}

// Savings is the per-unit amount taken off the list price.
func (p *Product) Savings() decimal.Decimal {
	return p.Price.Sub(p.NetPrice()).Round(2)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
