package cart

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ErrInvalidKey is returned when a cart item key cannot be parsed.
var ErrInvalidKey = errors.New("invalid cart item key")

const keySep = "_"

// Key identifies a cart line: a product plus optional size and color codes.
//
// The string form is product_id[_size][_color]. A color without a size is
// written as id__color so every key parses back unambiguously.
type Key struct {
	ProductID int64
	Size      string
	Color     string
}

func (k Key) String() string {
	id := strconv.FormatInt(k.ProductID, 10)
	switch {
	case k.Size != "" && k.Color != "":
		return id + keySep + k.Size + keySep + k.Color
	case k.Size != "":
		return id + keySep + k.Size
	case k.Color != "":
		return id + keySep + keySep + k.Color
	default:
		return id
	}
}

// ParseKey parses the string form produced by Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, keySep, 3)
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return Key{}, errors.Wrapf(ErrInvalidKey, "%q", s)
	}

	k := Key{ProductID: id}
	switch len(parts) {
	case 2:
		if parts[1] == "" {
			return Key{}, errors.Wrapf(ErrInvalidKey, "%q", s)
		}
		k.Size = parts[1]
	case 3:
		if parts[2] == "" || strings.Contains(parts[2], keySep) {
			return Key{}, errors.Wrapf(ErrInvalidKey, "%q", s)
		}
		k.Size = parts[1]
		k.Color = parts[2]
	}
	return k, nil
}

// ValidCode reports whether a size or color code can be embedded in a key.
func ValidCode(code string) bool {
	return code != "" && !strings.Contains(code, keySep)
}
