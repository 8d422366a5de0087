package celldata

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/carbocation/histdiff/hist"
	"github.com/carbocation/histdiff/plate"
	"github.com/carbocation/pfx"
)

// Accumulation holds the per-well histograms built by the second pass.
type Accumulation struct {
	// Histograms maps well -> feature -> histogram.
	Histograms map[string]map[string]*hist.Hist

	RowsRead         int64
	RowsSkipped      int64
	RowsOutsidePlate int64
}

// Accumulate makes the second pass over the table, filling one histogram per
// (well, usable feature) with nbins bins over the ranges found by
// ScanRanges. Rows whose well is not in the universe are discarded. Because
// bin increments commute, the result does not depend on row order or on the
// number of workers.
func Accumulate(ctx context.Context, open Opener, idCols []string, ranges *Ranges, universe *plate.Universe, nbins int, opts Options) (*Accumulation, error) {
	opts = opts.withDefaults()

	if nbins < 1 {
		return nil, fmt.Errorf("number of bins must be positive, got %d", nbins)
	}

	rc, err := open()
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer rc.Close()

	return accumulateTable(ctx, rc, idCols, ranges, universe, nbins, opts)
}

func accumulateTable(ctx context.Context, r io.Reader, idCols []string, ranges *Ranges, universe *plate.Universe, nbins int, opts Options) (*Accumulation, error) {
	t, err := OpenTable(r, idCols)
	if err != nil {
		return nil, err
	}

	cols, err := t.Columns(ranges.Features)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("the table header changed between passes: %w", err))
	}

	wh := NewWellHistograms(nbins, ranges.Ranges)
	var outside int64

	err = fanOut(ctx, t, opts, func(batch [][]string) error {
		values := make([]float64, len(cols))
		for _, record := range batch {
			well := t.WellID(record)
			if !universe.Contains(well) {
				atomic.AddInt64(&outside, 1)
				continue
			}

			for j, col := range cols {
				values[j] = ParseValue(record[col])
			}

			if err := wh.FillRow(well, ranges.Features, values); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, pfx.Err(err)
	}

	return &Accumulation{
		Histograms:       wh.Snapshot(),
		RowsRead:         t.Rows(),
		RowsSkipped:      t.Skipped(),
		RowsOutsidePlate: atomic.LoadInt64(&outside),
	}, nil
}
