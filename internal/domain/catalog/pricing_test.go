package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_NetPrice(t *testing.T) {
	tests := []struct {
		name    string
		price   string
		percent string
		amount  string
		want    string
	}{
		{name: "no discount", price: "1500.00", percent: "0", amount: "0", want: "1500.00"},
		{name: "percentage", price: "1500.00", percent: "10", amount: "0", want: "1350.00"},
		{name: "fixed amount", price: "1500.00", percent: "0", amount: "200", want: "1300.00"},
		{name: "percentage takes priority over fixed", price: "1000.00", percent: "25", amount: "900", want: "750.00"},
		{name: "fixed larger than price floors at zero", price: "100.00", percent: "0", amount: "150", want: "0"},
		{name: "percentage rounds to two places", price: "99.99", percent: "33", amount: "0", want: "66.99"},
		{name: "negative percentage ignored", price: "500.00", percent: "-10", amount: "50", want: "450.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{
				Price:              decimal.RequireFromString(tt.price),
				DiscountPercentage: decimal.RequireFromString(tt.percent),
				DiscountAmount:     decimal.RequireFromString(tt.amount),
			}
			got := p.NetPrice()
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got),
				"expected %s, got %s", tt.want, got)
		})
	}
}

func TestProduct_Savings(t *testing.T) {
	p := Product{
		Price:              decimal.RequireFromString("2000.00"),
		DiscountPercentage: decimal.NewFromInt(15),
	}

	assert.True(t, p.HasDiscount())
	assert.True(t, decimal.RequireFromString("300.00").Equal(p.Savings()))

	plain := Product{Price: decimal.NewFromInt(10)}
	assert.False(t, plain.HasDiscount())
	assert.True(t, decimal.Zero.Equal(plain.Savings()))
}
