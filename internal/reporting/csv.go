package reporting

import (
	"fmt"
	"strings"
	"time"

	"revenue-feature-lab/internal/domain"
	"revenue-feature-lab/internal/features"
	"revenue-feature-lab/internal/training"
)

// RenderMetricsCSV renders the daily entity metric table.
func RenderMetricsCSV(metrics []*domain.DailyEntityMetric) string {
	var sb strings.Builder

	sb.WriteString("day,entity_id,orders,items,gross_value,return_value,net_value\n")
	for _, m := range metrics {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f\n",
			m.Day.Format(time.DateOnly),
			m.EntityID,
			m.Orders,
			m.Items,
			m.GrossValue,
			m.ReturnValue,
			m.NetValue,
		))
	}

	return sb.String()
}

// RenderFeaturesCSV renders feature rows in the given column order followed
// by the target column. The target is empty for rows without a label.
// Returns an error if a row does not flatten to len(columns) values.
func RenderFeaturesCSV(rows []*domain.FeatureRow, columns []string, targets map[domain.MetricKey]float64) (string, error) {
	var sb strings.Builder

	sb.WriteString("day,entity_id")
	for _, c := range columns {
		sb.WriteString(",")
		sb.WriteString(c)
	}
	sb.WriteString(",")
	sb.WriteString(training.TargetColumn)
	sb.WriteString("\n")

	for _, r := range rows {
		values := features.Values(r)
		if len(values) != len(columns) {
			return "", fmt.Errorf("feature row %s/%s has %d values, expected %d",
				r.EntityID, r.Day.Format(time.DateOnly), len(values), len(columns))
		}
		sb.WriteString(r.Day.Format(time.DateOnly))
		sb.WriteString(",")
		sb.WriteString(r.EntityID)
		for _, v := range values {
			sb.WriteString(fmt.Sprintf(",%.6f", v))
		}
		if y, ok := targets[r.Key()]; ok {
			sb.WriteString(fmt.Sprintf(",%.6f", y))
		} else {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
