package features

import (
	"math"

	"revenue-feature-lab/internal/domain"
)

// rolling computes window statistics over a non-empty window.
func rolling(window int, rows []*domain.DailyEntityMetric) domain.RollingFeatures {
	out := domain.RollingFeatures{Window: window}
	n := len(rows)
	if n == 0 {
		return out
	}

	out.MaxNet = rows[0].NetValue
	var sum float64
	for _, r := range rows {
		sum += r.NetValue
		out.SumOrders += r.Orders
		if r.NetValue > out.MaxNet {
			out.MaxNet = r.NetValue
		}
	}
	out.MeanNet = sum / float64(n)

	if n > 1 {
		var sq float64
		for _, r := range rows {
			d := r.NetValue - out.MeanNet
			sq += d * d
		}
		out.StdNet = math.Sqrt(sq / float64(n-1))
	}
	return out
}

// safeDiv returns num/den, or 0 when den is 0.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
