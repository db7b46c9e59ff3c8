package training

import (
	"fmt"
	"io"
	"strings"
)

// PrintSummary writes a human-readable report of a finished run.
func PrintSummary(w io.Writer, r *Result, modelPath, metaPath string) {
	m := r.Metadata
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "                TRAINING COMPLETED")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run ID              : %s\n", m.RunID)
	fmt.Fprintf(w, "Model saved         -> %s\n", modelPath)
	fmt.Fprintf(w, "Metadata saved      -> %s\n", metaPath)
	fmt.Fprintf(w, "Target              : %s\n", m.Target)
	fmt.Fprintf(w, "Features used (%d): %s\n", len(m.FeaturesUsed), strings.Join(m.FeaturesUsed, ", "))
	fmt.Fprintf(w, "Train samples       : %d\n", m.TrainSamples)
	fmt.Fprintf(w, "Test samples        : %d\n", m.TestSamples)
	fmt.Fprintf(w, "Training MAE        : %.2f\n", m.MetricsOnTrainingSet.MAE)
	fmt.Fprintf(w, "R² score (Train)    : %.4f\n", m.MetricsOnTrainingSet.R2)
	if t := m.MetricsOnTestSet; t != nil {
		fmt.Fprintln(w, strings.Repeat("-", 50))
		fmt.Fprintf(w, "Testing MAE         : %.2f\n", t.MAE)
		fmt.Fprintf(w, "R² score (Test)     : %.4f\n", t.R2)
	}
	fmt.Fprintf(w, "Baseline MAE        : %.2f\n", m.BaselineNaiveMAE)
	fmt.Fprintf(w, "Improvement         : %.1f%%\n", m.ImprovementOverBaselinePct)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Top 5 Important Features:")
	for i, c := range m.Top5ImportantFeatures {
		fmt.Fprintf(w, "  %d. %s: %.2f\n", i+1, c.Feature, c.Coefficient)
	}
	fmt.Fprintln(w, rule)
}
