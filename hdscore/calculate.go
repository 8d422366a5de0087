package hdscore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/carbocation/histdiff/celldata"
	"github.com/carbocation/histdiff/plate"
	"github.com/carbocation/pfx"
	"github.com/dustin/go-humanize"
)

// ErrNoControls is returned when a run is configured without control wells.
var ErrNoControls = errors.New("no control wells were provided")

const DefaultNBins = 20

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// Options configure a HistDiff run.
type Options struct {
	// Open returns a fresh reader over the cell-level table. It is called
	// once per pass.
	Open celldata.Opener

	// IDColumns name the column(s) whose values identify a cell's well.
	IDColumns []string

	// Controls are the control wells. They are canonicalized before use.
	Controls []string

	NBins  int
	Factor float64
	Alpha  float64

	// Blocks optionally split the plate into independently scored groups.
	Blocks [][]string

	// Universe restricts the wells that are read. Defaults to the 384-well
	// plate.
	Universe *plate.Universe

	Workers   int
	BatchSize int
	Conflict  ConflictPolicy

	Log logger
}

// DefaultOptions returns the options of a standard run. Open, IDColumns and
// Controls still have to be filled in.
func DefaultOptions() Options {
	return Options{
		IDColumns: []string{"id"},
		NBins:     DefaultNBins,
		Factor:    1.0,
		Alpha:     DefaultAlpha,
	}
}

// GroupReport describes what happened to one group.
type GroupReport struct {
	Name         string
	Wells        int
	ScoredWells  int
	ControlWells []string

	// SkippedFeatures had no control data in this group and were not scored.
	SkippedFeatures []string

	// Conflicts counts wells already scored by an earlier group.
	Conflicts int
}

// Result is the outcome of Calculate.
type Result struct {
	Table  *Table
	Ranges *celldata.Ranges
	Groups []GroupReport

	RowsRead         int64
	RowsSkipped      int64
	RowsOutsidePlate int64

	ScanTime       time.Duration
	AccumulateTime time.Duration
	ScoreTime      time.Duration
}

func (o Options) validate() error {
	if o.Open == nil {
		return fmt.Errorf("no input was provided")
	}
	if len(o.IDColumns) == 0 {
		return fmt.Errorf("at least one identifier column is required")
	}
	if len(o.Controls) == 0 {
		return ErrNoControls
	}
	if o.NBins < 1 {
		return fmt.Errorf("number of bins must be positive, got %d", o.NBins)
	}

	return nil
}

// Calculate runs the whole pipeline: it finds the range of every feature,
// builds the per-well histograms, then pools the controls and scores the
// wells of every group, merging the groups into one table.
func Calculate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Universe == nil {
		opts.Universe = plate.Default()
	}
	if opts.Log == nil {
		opts.Log = log.New(io.Discard, "", 0)
	}
	controls := uniqueWells(plate.CanonicalAll(opts.Controls))
	copts := celldata.Options{Workers: opts.Workers, BatchSize: opts.BatchSize}

	started := time.Now()
	ranges, err := celldata.ScanRanges(ctx, opts.Open, opts.IDColumns, copts)
	if err != nil {
		return nil, pfx.Err(err)
	}
	res := &Result{
		Ranges:      ranges,
		ScanTime:    time.Since(started),
		RowsSkipped: ranges.RowsSkipped,
	}
	opts.Log.Printf("Scanned %s rows in %s: %d usable features, %d problematic\n",
		humanize.Comma(ranges.RowsRead), res.ScanTime, len(ranges.Features), len(ranges.Problematic))
	if ranges.RowsSkipped > 0 {
		opts.Log.Printf("Skipped %s malformed rows\n", humanize.Comma(ranges.RowsSkipped))
	}
	for _, f := range ranges.Problematic {
		opts.Log.Println("Problematic feature (no finite values):", f)
	}

	started = time.Now()
	acc, err := celldata.Accumulate(ctx, opts.Open, opts.IDColumns, ranges, opts.Universe, opts.NBins, copts)
	if err != nil {
		return nil, pfx.Err(err)
	}
	res.AccumulateTime = time.Since(started)
	res.RowsRead = acc.RowsRead
	res.RowsOutsidePlate = acc.RowsOutsidePlate
	opts.Log.Printf("Accumulated histograms for %d wells in %s (%s rows outside the plate)\n",
		len(acc.Histograms), res.AccumulateTime, humanize.Comma(acc.RowsOutsidePlate))

	started = time.Now()
	groups := plate.BuildGroups(opts.Universe, opts.Blocks)
	if overlap := plate.OverlappingWells(groups); len(overlap) > 0 {
		opts.Log.Printf("%d wells belong to more than one group; conflict policy is %s\n", len(overlap), opts.Conflict)
	}

	res.Table = NewTable()
	for _, group := range groups {
		gh, err := PrepareGroup(group, acc.Histograms, controls, ranges.Features, opts.Alpha)
		if err != nil {
			return nil, pfx.Err(err)
		}

		report := GroupReport{
			Name:            group.Name,
			Wells:           len(gh.Wells),
			ControlWells:    gh.ControlWells,
			SkippedFeatures: gh.MissingControl,
		}
		if len(gh.ControlWells) == 0 && len(gh.Wells) > 0 {
			opts.Log.Printf("Group %s has no %s wells with data; none of its wells will be scored\n", group.Name, ControlLabel)
		} else if len(gh.MissingControl) > 0 {
			opts.Log.Printf("Group %s: %d features have no control data and were skipped\n", group.Name, len(gh.MissingControl))
		}

		scores, err := ScoreGroup(ctx, gh, ranges.Features, opts.NBins, opts.Factor, opts.Workers)
		if err != nil {
			return nil, pfx.Err(err)
		}
		report.ScoredWells = len(scores)

		report.Conflicts, err = res.Table.Merge(group.Name, scores, opts.Conflict)
		if err != nil {
			return nil, err
		}

		res.Groups = append(res.Groups, report)
	}
	res.ScoreTime = time.Since(started)
	opts.Log.Printf("Scored %d wells in %d groups in %s\n", res.Table.Len(), len(groups), res.ScoreTime)

	return res, nil
}
