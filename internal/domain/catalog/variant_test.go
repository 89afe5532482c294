package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariant(t *testing.T) {
	variants := []Variant{
		{ID: 1, ProductID: 7, SizeCode: "6", ColorCode: "gold", Stock: 2},
		{ID: 2, ProductID: 7, SizeCode: "6", Stock: 5},
		{ID: 3, ProductID: 7, ColorCode: "silver", Stock: 9},
		{ID: 4, ProductID: 7, Stock: 100},
	}

	tests := []struct {
		name   string
		size   string
		color  string
		wantID int64
	}{
		{name: "exact size and color", size: "6", color: "gold", wantID: 1},
		{name: "size-only variant matches any color", size: "6", color: "rose", wantID: 2},
		{name: "size-only variant matches no color", size: "6", wantID: 2},
		{name: "color-only variant", size: "8", color: "silver", wantID: 3},
		{name: "no match falls back to product stock", size: "9", color: "rose"},
		{name: "unconstrained variant is never chosen", wantID: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveVariant(variants, tt.size, tt.color)
			if tt.wantID == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestStockLimit(t *testing.T) {
	p := &Product{ID: 7, Stock: 4}

	assert.Equal(t, 4, StockLimit(p, nil))
	assert.Equal(t, 1, StockLimit(p, &Variant{ID: 3, Stock: 1}))

	assert.Equal(t, StockBucket{ProductID: 7}, BucketFor(7, nil))
	assert.Equal(t, StockBucket{ProductID: 7, VariantID: 3}, BucketFor(7, &Variant{ID: 3}))
}

func TestVariantsByProduct(t *testing.T) {
	grouped := VariantsByProduct([]Variant{
		{ID: 1, ProductID: 1},
		{ID: 2, ProductID: 2},
		{ID: 3, ProductID: 1},
	})

	require.Len(t, grouped[1], 2)
	require.Len(t, grouped[2], 1)
	assert.Equal(t, int64(3), grouped[1][1].ID)
}
