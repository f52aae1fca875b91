package features

import (
	"fmt"

	"revenue-feature-lab/internal/domain"
)

// Columns returns the feature column names in their stable order:
// base, calendar, rolling (per window), lag (per depth), lifetime, ratios.
func Columns(cfg Config) []string {
	cols := []string{
		"orders",
		"items",
		"day_of_week",
		"day_of_month",
		"is_weekend",
	}
	for _, w := range cfg.RollingWindows {
		cols = append(cols,
			fmt.Sprintf("rolling_%dd_mean_net", w),
			fmt.Sprintf("rolling_%dd_std_net", w),
			fmt.Sprintf("rolling_%dd_max_net", w),
			fmt.Sprintf("rolling_%dd_sum_orders", w),
		)
	}
	for _, l := range cfg.LagDepths {
		cols = append(cols,
			fmt.Sprintf("lag_%dd_net", l),
			fmt.Sprintf("lag_%dd_orders", l),
			fmt.Sprintf("lag_%dd_items", l),
		)
	}
	return append(cols,
		"lifetime_total_orders",
		"lifetime_total_spend",
		"lifetime_days_active",
		"lifetime_avg_order_value",
		"avg_items_per_order",
		"returns_ratio",
	)
}

// Values flattens a feature row in the order of Columns for the config the
// row was derived with.
func Values(row *domain.FeatureRow) []float64 {
	weekend := 0.0
	if row.IsWeekend {
		weekend = 1
	}

	out := make([]float64, 0, 11+4*len(row.Rolling)+3*len(row.Lags))
	out = append(out,
		float64(row.Orders),
		float64(row.Items),
		float64(row.DayOfWeek),
		float64(row.DayOfMonth),
		weekend,
	)
	for _, r := range row.Rolling {
		out = append(out, r.MeanNet, r.StdNet, r.MaxNet, float64(r.SumOrders))
	}
	for _, l := range row.Lags {
		out = append(out, l.Net, float64(l.Orders), float64(l.Items))
	}
	return append(out,
		float64(row.LifetimeOrders),
		row.LifetimeSpend,
		float64(row.DaysActive),
		row.AvgOrderValue,
		row.ItemsPerOrder,
		row.ReturnsRatio,
	)
}

// ConfigOf recovers the windows and depths a row was derived with.
func ConfigOf(row *domain.FeatureRow) Config {
	cfg := Config{
		RollingWindows: make([]int, len(row.Rolling)),
		LagDepths:      make([]int, len(row.Lags)),
	}
	for i, r := range row.Rolling {
		cfg.RollingWindows[i] = r.Window
	}
	for i, l := range row.Lags {
		cfg.LagDepths[i] = l.Depth
	}
	return cfg
}
