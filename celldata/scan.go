package celldata

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/carbocation/pfx"
	"github.com/carbocation/runningvariance"
)

// Range is the plate-wide [Low, High] of one feature. Every histogram of the
// feature shares it so that bins line up across wells.
type Range struct {
	Low  float64
	High float64
}

// Widen returns the range for a feature whose finite values span [low, high].
// A degenerate range (low == high) is stretched so that the bin width is never
// zero: half of the value's magnitude is added, or 1.0 when the value is zero.
// For positive values this is high*1.5. For negative values high*1.5 would
// fall below low and every value of the feature would land outside the range.
func Widen(low, high float64) Range {
	if low != high {
		return Range{Low: low, High: high}
	}

	if high == 0 {
		return Range{Low: low, High: 1.0}
	}

	return Range{Low: low, High: high + math.Abs(high)*0.5}
}

// FeatureStat summarizes the finite values observed for one feature.
type FeatureStat struct {
	N    int64
	Min  float64
	Max  float64
	Mean float64
	SD   float64
}

// Ranges is the outcome of the range-discovery pass.
type Ranges struct {
	// Features lists the usable features in header order.
	Features []string

	// Ranges maps each usable feature to its histogram range.
	Ranges map[string]Range

	// Problematic lists, sorted, the features without a single finite value.
	Problematic []string

	// Stats holds the observation summary of every usable feature.
	Stats map[string]FeatureStat

	RowsRead    int64
	RowsSkipped int64
}

// featureRange accumulates the extrema of one feature. Workers update it under
// its own lock, so contention is per feature rather than per table.
type featureRange struct {
	m   sync.Mutex
	rv  *runningvariance.RunningStat
	n   int64
	min float64
	max float64
}

func (f *featureRange) Push(x float64) {
	f.m.Lock()
	defer f.m.Unlock()

	if f.n == 0 {
		f.min, f.max = x, x
	} else {
		if x < f.min {
			f.min = x
		}
		if x > f.max {
			f.max = x
		}
	}
	f.n++
	f.rv.Push(x)
}

// ScanRanges makes one pass over the table and computes the plate-wide range
// of every feature. Cells that are not finite numbers are ignored. Features
// with no finite value at all are reported as problematic rather than
// failing the scan.
func ScanRanges(ctx context.Context, open Opener, idCols []string, opts Options) (*Ranges, error) {
	opts = opts.withDefaults()

	rc, err := open()
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	return scanTable(ctx, rc, idCols, opts)
}

func scanTable(ctx context.Context, r io.Reader, idCols []string, opts Options) (*Ranges, error) {
	t, err := OpenTable(r, idCols)
	if err != nil {
		return nil, err
	}

	features := t.Features()
	entries := make([]*featureRange, len(features))
	for i := range entries {
		entries[i] = &featureRange{rv: runningvariance.NewRunningStat()}
	}

	err = fanOut(ctx, t, opts, func(batch [][]string) error {
		for _, record := range batch {
			for j, col := range t.featureIdx {
				v := ParseValue(record[col])
				if !isFinite(v) {
					continue
				}
				entries[j].Push(v)
			}
		}

		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := &Ranges{
		Ranges:      make(map[string]Range),
		Stats:       make(map[string]FeatureStat),
		RowsRead:    t.Rows(),
		RowsSkipped: t.Skipped(),
	}

	for i, name := range features {
		e := entries[i]
		if e.n == 0 {
			out.Problematic = append(out.Problematic, name)
			continue
		}

		if _, dup := out.Ranges[name]; dup {
			return nil, fmt.Errorf("feature %q appears more than once in the header", name)
		}

		out.Features = append(out.Features, name)
		out.Ranges[name] = Widen(e.min, e.max)
		out.Stats[name] = FeatureStat{
			N:    e.n,
			Min:  e.min,
			Max:  e.max,
			Mean: e.rv.Mean(),
			SD:   e.rv.StandardDeviation(),
		}
	}
	sort.Strings(out.Problematic)

	return out, nil
}
