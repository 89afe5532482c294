// Package notify announces shop events to the staff chat.
package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/order"
)

// Sender delivers a formatted message.
type Sender interface {
	Configured() bool
	SendMessage(ctx context.Context, text string) error
}

// Dhaka is the shop's local time zone.
var Dhaka = time.FixedZone("Asia/Dhaka", 6*60*60)

// Notifier formats and sends order notifications.
type Notifier struct {
	sender Sender
	loc    *time.Location
}

// NewNotifier creates a Notifier that renders times in loc.
func NewNotifier(s Sender, loc *time.Location) *Notifier {
	if loc == nil {
		loc = Dhaka
	}
	return &Notifier{sender: s, loc: loc}
}

// OrderPlaced sends the new-order message. It does nothing when the sender
// is not configured.
func (n *Notifier) OrderPlaced(ctx context.Context, o *order.Order) error {
	if !n.sender.Configured() {
		zctx.From(ctx).Warn("Chat notifications not configured", zap.Int64("order_id", o.ID))
		return nil
	}
	return n.sender.SendMessage(ctx, FormatOrder(o, n.loc))
}

// FormatOrder renders the order as a Telegram HTML message.
func FormatOrder(o *order.Order, loc *time.Location) string {
	esc := html.EscapeString
	var b strings.Builder

	fmt.Fprintf(&b, "🛒 <b>New Order #%d</b>\n\n", o.ID)

	b.WriteString("👤 <b>Customer:</b>\n")
	fmt.Fprintf(&b, "%s\n", esc(o.FullName()))
	fmt.Fprintf(&b, "📞 %s\n", esc(o.Phone))
	if o.Email != "" {
		fmt.Fprintf(&b, "📧 %s\n", esc(o.Email))
	}

	b.WriteString("\n📍 <b>Address:</b>\n")
	fmt.Fprintf(&b, "%s\n", esc(o.Address))
	fmt.Fprintf(&b, "%s, %s\n", esc(o.City), esc(o.PostalCode))
	fmt.Fprintf(&b, "🚚 %s (%s TK)\n", o.ShippingZone.Label(), o.ShippingZone.Cost().String())

	b.WriteString("\n📦 <b>Items:</b>\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  • %s x%d = ৳%s\n", esc(it.ProductName), it.Quantity, money(it.Cost()))
	}

	fmt.Fprintf(&b, "\n💰 <b>Subtotal:</b> ৳%s\n", money(o.Subtotal()))
	fmt.Fprintf(&b, "🚚 <b>Shipping:</b> ৳%s\n", money(o.ShippingCost))
	if o.PaymentDiscount.IsPositive() {
		fmt.Fprintf(&b, "🎁 <b>Discount:</b> -৳%s\n", money(o.PaymentDiscount))
	}
	fmt.Fprintf(&b, "💵 <b>Total:</b> ৳%s\n", money(o.Total()))

	fmt.Fprintf(&b, "\n💳 <b>Payment:</b> %s\n", o.PaymentMethod.Label())
	if o.TransactionID != "" {
		fmt.Fprintf(&b, "🔢 TxID: %s\n", esc(o.TransactionID))
	}

	created := o.Created
	if created.IsZero() {
		created = time.Now()
	}
	fmt.Fprintf(&b, "\n⏰ %s", created.In(loc).Format("02 Jan 2006, 03:04 PM"))
	return b.String()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
