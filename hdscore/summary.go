package hdscore

import (
	"fmt"
	"io"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// FeatureSummary describes the distribution of one feature's scores across
// wells.
type FeatureSummary struct {
	Feature  string
	N        int
	Mean     float64
	SD       float64
	Median   float64
	Min      float64
	Max      float64
	Negative int
}

// scoresOf collects the scores of feature in plate order.
func (t *Table) scoresOf(feature string) []float64 {
	var out []float64
	for _, well := range t.Wells() {
		if v := t.Get(well, feature); v.Valid {
			out = append(out, v.Float64)
		}
	}

	return out
}

// Summarize returns one summary per scored feature, sorted by feature.
func Summarize(t *Table) ([]FeatureSummary, error) {
	var out []FeatureSummary
	for _, feature := range t.Features() {
		vals := t.scoresOf(feature)
		if len(vals) == 0 {
			continue
		}

		s := FeatureSummary{Feature: feature, N: len(vals)}
		s.Mean, s.SD = stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			s.SD = 0
		}

		var err error
		if s.Median, err = stats.Median(vals); err != nil {
			return nil, fmt.Errorf("median of %s: %w", feature, err)
		}
		if s.Min, err = stats.Min(vals); err != nil {
			return nil, fmt.Errorf("min of %s: %w", feature, err)
		}
		if s.Max, err = stats.Max(vals); err != nil {
			return nil, fmt.Errorf("max of %s: %w", feature, err)
		}

		for _, v := range vals {
			if v < 0 {
				s.Negative++
			}
		}

		out = append(out, s)
	}

	return out, nil
}

// PlotScores prints an ASCII histogram of the scores of one feature.
func PlotScores(w io.Writer, t *Table, feature string) error {
	vals := t.scoresOf(feature)
	if len(vals) == 0 {
		return fmt.Errorf("no scores for feature %q", feature)
	}

	// The number of buckets is arbitrary.
	hist := histogram.Hist(25, vals)

	return histogram.Fprint(w, hist, histogram.Linear(5))
}
