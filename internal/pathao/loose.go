package pathao

import (
	"github.com/go-faster/jx"
	"github.com/spf13/cast"
)

// readLoose reads a scalar that the API sends either as a number or as a
// string, depending on endpoint and account.
func readLoose(d *jx.Decoder) (any, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		return d.Float64()
	case jx.Bool:
		return d.Bool()
	case jx.Null:
		return nil, d.Null()
	default:
		return nil, d.Skip()
	}
}

func toInt(v any) int {
	return cast.ToInt(v)
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	return cast.ToString(v)
}

func looseInt(d *jx.Decoder) (int, error) {
	v, err := readLoose(d)
	return toInt(v), err
}

func looseString(d *jx.Decoder) (string, error) {
	v, err := readLoose(d)
	return toString(v), err
}

func looseBool(d *jx.Decoder) (bool, error) {
	v, err := readLoose(d)
	if f, ok := v.(float64); ok {
		return f != 0, err
	}
	return cast.ToBool(v), err
}

func toFloat(v any) float64 {
	return cast.ToFloat64(v)
}
