package notify

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxyglamour/storefront/internal/domain/order"
)

type mockSender struct {
	configured bool
	messages   []string
}

func (m *mockSender) Configured() bool { return m.configured }

func (m *mockSender) SendMessage(_ context.Context, text string) error {
	m.messages = append(m.messages, text)
	return nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:            12,
		FirstName:     "Nusrat",
		LastName:      "<Jahan>",
		Email:         "n@example.com",
		Phone:         "01712345678",
		Address:       "House 4, Road 7",
		PostalCode:    "1207",
		City:          "Dhaka",
		ShippingZone:  order.ZoneIntercityDhaka,
		ShippingCost:  order.ZoneIntercityDhaka.Cost(),
		PaymentMethod: order.PaymentBkash,
		TransactionID: "TX9",

		PaymentDiscount: order.PaymentBkash.Discount(),
		Items: []order.Item{
			{ProductName: "Gold Ring", Price: decimal.RequireFromString("1000"), Quantity: 2},
		},
		Created: time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestFormatOrder(t *testing.T) {
	msg := FormatOrder(testOrder(), Dhaka)

	for _, want := range []string{
		"🛒 <b>New Order #12</b>",
		"Nusrat &lt;Jahan&gt;",
		"📧 n@example.com",
		"Dhaka, 1207",
		"🚚 Intercity Dhaka (120 TK)",
		"  • Gold Ring x2 = ৳2000.00",
		"💰 <b>Subtotal:</b> ৳2000.00",
		"🚚 <b>Shipping:</b> ৳120.00",
		"🎁 <b>Discount:</b> -৳10.00",
		"💵 <b>Total:</b> ৳2110.00",
		"💳 <b>Payment:</b> bKash",
		"🔢 TxID: TX9",
		"⏰ 01 Mar 2026, 02:30 PM",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestFormatOrderOptionalLines(t *testing.T) {
	o := testOrder()
	o.Email = ""
	o.TransactionID = ""
	o.PaymentMethod = order.PaymentCOD
	o.PaymentDiscount = decimal.Zero

	msg := FormatOrder(o, Dhaka)
	assert.NotContains(t, msg, "📧")
	assert.NotContains(t, msg, "TxID")
	assert.NotContains(t, msg, "Discount")
	assert.Contains(t, msg, "Cash on Delivery")
}

func TestOrderPlaced(t *testing.T) {
	t.Run("Configured", func(t *testing.T) {
		s := &mockSender{configured: true}
		require.NoError(t, NewNotifier(s, nil).OrderPlaced(context.Background(), testOrder()))
		require.Len(t, s.messages, 1)
		assert.Contains(t, s.messages[0], "New Order #12")
	})

	t.Run("NotConfigured", func(t *testing.T) {
		s := &mockSender{}
		require.NoError(t, NewNotifier(s, nil).OrderPlaced(context.Background(), testOrder()))
		assert.Empty(t, s.messages)
	})
}
