package normalization

import (
	"math"

	"revenue-feature-lab/internal/domain"
)

// dedupKey is the 5-field duplicate match. Description and the remaining
// fields are deliberately excluded.
type dedupKey struct {
	invoiceID string
	productID string
	timestamp string
	quantity  int64
	hasPrice  bool
	price     uint64
}

func newDedupKey(r *domain.RawTransaction) dedupKey {
	k := dedupKey{
		invoiceID: r.InvoiceID,
		productID: r.ProductID,
		timestamp: r.Timestamp,
		quantity:  r.Quantity,
	}
	if r.UnitPrice != nil {
		k.hasPrice = true
		k.price = math.Float64bits(*r.UnitPrice)
	}
	return k
}

// Deduplicate keeps the first occurrence of every (invoice id, product id,
// timestamp, quantity, unit price) combination in input order.
// Nil entries are skipped and not counted as duplicates.
// Returns the retained rows and the number of duplicates removed.
func Deduplicate(raw []*domain.RawTransaction) ([]*domain.RawTransaction, int) {
	seen := make(map[dedupKey]struct{}, len(raw))
	out := make([]*domain.RawTransaction, 0, len(raw))
	removed := 0

	for _, r := range raw {
		if r == nil {
			continue
		}
		k := newDedupKey(r)
		if _, dup := seen[k]; dup {
			removed++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	return out, removed
}
