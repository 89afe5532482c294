package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAdd(t *testing.T) {
	c := New()
	k := Key{ProductID: 1, Size: "6"}

	c.Add(k, 2, decimal.RequireFromString("100"), false)
	c.Add(k, 1, decimal.RequireFromString("80"), false)

	l, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)
	// The first snapshot price is kept.
	assert.True(t, decimal.RequireFromString("100").Equal(l.Price))

	c.Add(k, 5, decimal.Zero, true)
	l, _ = c.Get(k)
	assert.Equal(t, 5, l.Quantity)

	c.Add(k, 0, decimal.Zero, true)
	_, ok = c.Get(k)
	assert.False(t, ok)
	assert.True(t, c.IsEmpty())
}

func TestCartTotals(t *testing.T) {
	c := New()
	c.Add(Key{ProductID: 2}, 2, decimal.RequireFromString("10.50"), false)
	c.Add(Key{ProductID: 1, Color: "gold"}, 1, decimal.RequireFromString("5"), false)
	c.Add(Key{ProductID: 1, Size: "7"}, 3, decimal.RequireFromString("1"), false)

	assert.Equal(t, 6, c.Len())
	assert.True(t, decimal.RequireFromString("29").Equal(c.Total()))
	assert.Equal(t, []Key{
		{ProductID: 1, Color: "gold"},
		{ProductID: 1, Size: "7"},
		{ProductID: 2},
	}, c.Keys())
	assert.Equal(t, []int64{1, 2}, c.ProductIDs())

	assert.True(t, c.Remove(Key{ProductID: 2}))
	assert.False(t, c.Remove(Key{ProductID: 2}))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCodecRoundTrip(t *testing.T) {
	c := New()
	c.Add(Key{ProductID: 7, Size: "6", Color: "gold"}, 2, decimal.RequireFromString("1350"), false)
	c.Add(Key{ProductID: 9}, 1, decimal.RequireFromString("99.99"), false)

	got, err := Decode(c.Encode())
	require.NoError(t, err)

	want := c.Entries()
	entries := got.Entries()
	require.Len(t, entries, len(want))
	for i := range want {
		assert.Equal(t, want[i].Key, entries[i].Key)
		assert.Equal(t, want[i].Line.Quantity, entries[i].Line.Quantity)
		assert.Equal(t, want[i].Line.ProductID, entries[i].Line.ProductID)
		assert.True(t, want[i].Line.Price.Equal(entries[i].Line.Price))
	}
}

func TestDecode(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		c, err := Decode(nil)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
	})

	t.Run("LegacyBareKey", func(t *testing.T) {
		c, err := Decode([]byte(`{"7": {"quantity": 2, "price": 150.5, "size": "6"}}`))
		require.NoError(t, err)

		l, ok := c.Get(Key{ProductID: 7, Size: "6"})
		require.True(t, ok)
		assert.Equal(t, int64(7), l.ProductID)
		assert.Equal(t, 2, l.Quantity)
		assert.True(t, decimal.RequireFromString("150.5").Equal(l.Price))
	})

	t.Run("DropsBrokenLines", func(t *testing.T) {
		c, err := Decode([]byte(`{"x": {"quantity": 1, "price": "1"}, "3": {"quantity": 0, "price": "1"}, "4": {"quantity": 1, "price": "2", "extra": [1]}}`))
		require.NoError(t, err)
		assert.Equal(t, []Key{{ProductID: 4}}, c.Keys())
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Decode([]byte(`{"7": `))
		require.Error(t, err)
	})
}
