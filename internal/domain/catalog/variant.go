package catalog

// ResolveVariant picks the variant that governs stock for the given size and
// color codes. An exact match on both codes wins; otherwise the most specific
// variant whose set codes all match is used. Variants constraining nothing are
// never selected. It returns nil when no variant applies, in which case
// product-level stock is authoritative.
func ResolveVariant(variants []Variant, size, color string) *Variant {
	var (
		best      *Variant
		bestScore int
	)
	for i := range variants {
		v := &variants[i]
		if v.SizeCode == "" && v.ColorCode == "" {
			continue
		}
		if v.SizeCode != "" && v.SizeCode != size {
			continue
		}
		if v.ColorCode != "" && v.ColorCode != color {
			continue
		}
		score := 0
		if v.SizeCode != "" {
			score++
		}
		if v.ColorCode != "" {
			score++
		}
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	return best
}

// StockBucket identifies one pool of inventory: a single variant, or the
// product-level stock when VariantID is zero.
type StockBucket struct {
	ProductID int64
	VariantID int64
}

// BucketFor returns the stock bucket for a product and its resolved variant.
func BucketFor(productID int64, v *Variant) StockBucket {
	if v == nil {
		return StockBucket{ProductID: productID}
	}
	return StockBucket{ProductID: productID, VariantID: v.ID}
}

// StockLimit returns the stock available for the product, preferring the
// resolved variant's count when one exists.
func StockLimit(p *Product, v *Variant) int {
	if v != nil {
		return v.Stock
	}
	return p.Stock
}

// VariantsByProduct groups variants by product id.
func VariantsByProduct(variants []Variant) map[int64][]Variant {
	out := make(map[int64][]Variant)
	for _, v := range variants {
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out
}
