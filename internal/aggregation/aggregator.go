// Package aggregation collapses normalized transactions into one metric row
// per (day, entity).
package aggregation

import (
	"sort"

	"github.com/shopspring/decimal"

	"revenue-feature-lab/internal/domain"
)

const stage = "aggregate"

// group accumulates one (day, entity) bucket.
type group struct {
	metric   *domain.DailyEntityMetric
	invoices map[string]struct{}
	gross    decimal.Decimal
	returns  decimal.Decimal
}

// Aggregate groups transactions by (calendar day, entity id).
//
// Per group:
//   - orders = COUNT(DISTINCT invoice_id)
//   - items = SUM(|quantity|)
//   - gross = SUM(quantity * resolved_price) WHERE quantity > 0
//   - returns = SUM(quantity * resolved_price) WHERE quantity < 0
//   - net = gross + returns
//
// Absent entity-days produce no row. Output is sorted by (day, entity id).
// Returns *domain.ValidationError for a transaction that violates the
// normalized schema.
func Aggregate(txs []*domain.Transaction) ([]*domain.DailyEntityMetric, error) {
	groups := make(map[domain.MetricKey]*group)

	for i, tx := range txs {
		if err := validate(i, tx); err != nil {
			return nil, err
		}

		key := domain.MetricKey{Day: tx.Day(), EntityID: tx.EntityID}
		g, ok := groups[key]
		if !ok {
			g = &group{
				metric:   &domain.DailyEntityMetric{Day: key.Day, EntityID: key.EntityID},
				invoices: make(map[string]struct{}),
			}
			groups[key] = g
		}

		g.invoices[tx.InvoiceID] = struct{}{}
		if tx.Quantity < 0 {
			g.metric.Items -= tx.Quantity
		} else {
			g.metric.Items += tx.Quantity
		}

		value := decimal.NewFromInt(tx.Quantity).Mul(decimal.NewFromFloat(tx.ResolvedPrice))
		switch {
		case tx.Quantity > 0:
			g.gross = g.gross.Add(value)
		case tx.Quantity < 0:
			g.returns = g.returns.Add(value)
		}
	}

	result := make([]*domain.DailyEntityMetric, 0, len(groups))
	for _, g := range groups {
		g.metric.Orders = len(g.invoices)
		g.metric.GrossValue = g.gross.InexactFloat64()
		g.metric.ReturnValue = g.returns.InexactFloat64()
		g.metric.NetValue = g.gross.Add(g.returns).InexactFloat64()
		result = append(result, g.metric)
	}

	SortMetrics(result)
	return result, nil
}

// SortMetrics orders metric rows by (day ASC, entity_id ASC).
func SortMetrics(metrics []*domain.DailyEntityMetric) {
	sort.Slice(metrics, func(i, j int) bool {
		if !metrics[i].Day.Equal(metrics[j].Day) {
			return metrics[i].Day.Before(metrics[j].Day)
		}
		return metrics[i].EntityID < metrics[j].EntityID
	})
}

func validate(i int, tx *domain.Transaction) error {
	switch {
	case tx == nil:
		return &domain.ValidationError{Stage: stage, Row: i, Field: "record", Reason: "nil transaction"}
	case tx.EntityID == "":
		return &domain.ValidationError{Stage: stage, Row: i, Field: "entity_id", Reason: "empty"}
	case !(tx.ResolvedPrice > 0):
		return &domain.ValidationError{Stage: stage, Row: i, Field: "resolved_price", Reason: "not strictly positive"}
	case tx.Timestamp.IsZero():
		return &domain.ValidationError{Stage: stage, Row: i, Field: "timestamp", Reason: "zero"}
	}
	return nil
}
