package normalization

import (
	"sort"
	"time"
)

// priceGroupKey groups price observations by (product, currency, day).
type priceGroupKey struct {
	productID string
	currency  string
	day       time.Time
}

// priceIndex holds the valid price observations used for imputation.
type priceIndex struct {
	byGroup   map[priceGroupKey][]float64
	byProduct map[string][]float64
}

func buildPriceIndex(records []*record) *priceIndex {
	idx := &priceIndex{
		byGroup:   make(map[priceGroupKey][]float64),
		byProduct: make(map[string][]float64),
	}
	for _, r := range records {
		if !r.hasValidPrice() {
			continue
		}
		price := *r.raw.UnitPrice
		if r.tsOK {
			k := priceGroupKey{productID: r.raw.ProductID, currency: r.raw.Currency, day: r.day}
			idx.byGroup[k] = append(idx.byGroup[k], price)
		}
		idx.byProduct[r.raw.ProductID] = append(idx.byProduct[r.raw.ProductID], price)
	}
	return idx
}

// imputeSource reports which fallback level produced an imputed price.
type imputeSource int

const (
	imputeNone imputeSource = iota
	imputeSameDay
	imputeProductGlobal
)

// resolve returns the median price for r: same product, currency and day
// first, then the product across all days and currencies.
func (idx *priceIndex) resolve(r *record) (float64, imputeSource) {
	if r.tsOK {
		k := priceGroupKey{productID: r.raw.ProductID, currency: r.raw.Currency, day: r.day}
		if prices := idx.byGroup[k]; len(prices) > 0 {
			return Median(prices), imputeSameDay
		}
	}
	if prices := idx.byProduct[r.raw.ProductID]; len(prices) > 0 {
		return Median(prices), imputeProductGlobal
	}
	return 0, imputeNone
}

// Median returns the median of values, averaging the two middle values for
// even lengths. Returns 0 for an empty slice. The input is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
