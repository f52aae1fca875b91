package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the run summary as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Pipeline Run Summary\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Run != nil {
		sb.WriteString(fmt.Sprintf("Run: %s | Status: %s | Started: %s\n\n",
			r.Run.RunID, r.Run.Status, r.Run.StartedAt.Format(time.RFC3339)))
		if r.Run.Error != nil {
			sb.WriteString(fmt.Sprintf("Error: %s\n\n", *r.Run.Error))
		}
	}

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Metric Rows | %d |\n", r.DataSummary.MetricRows))
	sb.WriteString(fmt.Sprintf("| Feature Rows | %d |\n", r.DataSummary.FeatureRows))
	sb.WriteString(fmt.Sprintf("| Entities | %d |\n", r.DataSummary.Entities))
	sb.WriteString(fmt.Sprintf("| First Day | %s |\n", formatDay(r.DataSummary.FirstDay)))
	sb.WriteString(fmt.Sprintf("| Last Day | %s |\n", formatDay(r.DataSummary.LastDay)))
	sb.WriteString(fmt.Sprintf("| Total Net Value | %.2f |\n", r.DataSummary.TotalNet))
	sb.WriteString("\n")

	// Normalization
	sb.WriteString("## Normalization\n\n")
	if n := r.Normalization; n != nil {
		sb.WriteString("| Step | Rows |\n")
		sb.WriteString("|------|------|\n")
		sb.WriteString(fmt.Sprintf("| Input | %d |\n", n.InputRows))
		if n.NilRows > 0 {
			sb.WriteString(fmt.Sprintf("| Nil Rows | %d |\n", n.NilRows))
		}
		sb.WriteString(fmt.Sprintf("| Duplicates Removed | %d |\n", n.DuplicatesRemoved))
		sb.WriteString(fmt.Sprintf("| Missing Entity | %d |\n", n.MissingEntity))
		sb.WriteString(fmt.Sprintf("| Price Imputed (same day) | %d |\n", n.ImputedSameDay))
		sb.WriteString(fmt.Sprintf("| Price Imputed (product) | %d |\n", n.ImputedGlobal))
		sb.WriteString(fmt.Sprintf("| Unimputable Price | %d |\n", n.Unimputable))
		sb.WriteString(fmt.Sprintf("| Descriptions Filled | %d |\n", n.DescriptionsFilled))
		sb.WriteString(fmt.Sprintf("| Invalid Currency | %d |\n", n.InvalidCurrency))
		sb.WriteString(fmt.Sprintf("| Invalid Price | %d |\n", n.InvalidPrice))
		sb.WriteString(fmt.Sprintf("| Invalid Timestamp | %d |\n", n.InvalidTimestamp))
		sb.WriteString(fmt.Sprintf("| Output | %d |\n", n.OutputRows))
	} else {
		sb.WriteString("No normalization report available.\n")
	}
	sb.WriteString("\n")

	// Split
	sb.WriteString("## Temporal Split\n\n")
	if s := r.Split; s != nil {
		sb.WriteString("| Set | Rows | First Day | Last Day |\n")
		sb.WriteString("|-----|------|-----------|----------|\n")
		sb.WriteString(fmt.Sprintf("| fit | %d | %s | %s |\n", s.FitRows, formatDay(s.FitFirst), formatDay(s.FitLast)))
		sb.WriteString(fmt.Sprintf("| evaluate | %d | %s | %s |\n", s.EvalRows, formatDay(s.EvalFirst), formatDay(s.EvalLast)))
		sb.WriteString(fmt.Sprintf("\nTrain fraction: %.2f\n", s.TrainFraction))
	} else {
		sb.WriteString("No split available.\n")
	}
	sb.WriteString("\n")

	// Model
	sb.WriteString("## Model\n\n")
	if m := r.Model; m != nil {
		sb.WriteString(fmt.Sprintf("Trainer: %s\n\n", m.Trainer))
		sb.WriteString("| Set | N | MAE | RMSE | R2 |\n")
		sb.WriteString("|-----|---|-----|------|----|\n")
		sb.WriteString(fmt.Sprintf("| fit | %d | %.4f | %.4f | %.4f |\n", m.Fit.N, m.Fit.MAE, m.Fit.RMSE, m.Fit.R2))
		sb.WriteString(fmt.Sprintf("| evaluate | %d | %.4f | %.4f | %.4f |\n", m.Eval.N, m.Eval.MAE, m.Eval.RMSE, m.Eval.R2))
	} else {
		sb.WriteString("No model trained.\n")
	}
	sb.WriteString("\n")

	// Columns
	sb.WriteString("## Feature Columns\n\n")
	for i, c := range r.Columns {
		sb.WriteString(fmt.Sprintf("%d. `%s`\n", i+1, c))
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateOnly)
}
