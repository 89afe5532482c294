package cart

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode serializes the cart for session storage:
//
//	{"7_6_gold": {"quantity": 2, "price": "1350.00", "product_id": "7", "size": "6", "color": "gold"}}
func (c *Cart) Encode() []byte {
	var e jx.Encoder
	e.ObjStart()
	for _, entry := range c.Entries() {
		l := entry.Line
		e.FieldStart(entry.Key.String())
		e.ObjStart()
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("price")
		e.Str(l.Price.StringFixed(2))
		e.FieldStart("product_id")
		e.Str(strconv.FormatInt(l.ProductID, 10))
		e.FieldStart("size")
		encodeOptStr(&e, l.Size)
		e.FieldStart("color")
		encodeOptStr(&e, l.Color)
		e.ObjEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

func encodeOptStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

// Decode restores a cart from Encode output. Bare product-id keys from older
// sessions are accepted. Lines with unparsable keys or non-positive quantity
// are dropped.
func Decode(data []byte) (*Cart, error) {
	c := New()
	if len(data) == 0 {
		return c, nil
	}

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var l Line
		if err := d.Obj(func(d *jx.Decoder, field string) error {
			var err error
			switch field {
			case "quantity":
				l.Quantity, err = d.Int()
			case "price":
				l.Price, err = decodeDecimal(d)
			case "size":
				l.Size, err = decodeOptStr(d)
			case "color":
				l.Color, err = decodeOptStr(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return errors.Wrapf(err, "line %q", key)
		}

		k, err := ParseKey(key)
		if err != nil || l.Quantity <= 0 {
			return nil
		}
		l.ProductID = k.ProductID
		if k.Size != "" {
			l.Size = k.Size
		}
		if k.Color != "" {
			l.Color = k.Color
		}
		k.Size, k.Color = l.Size, l.Color
		c.lines[k] = l
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return c, nil
}

func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		raw = n.String()
	default:
		return decimal.Zero, d.Skip()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "price")
	}
	return v, nil
}
