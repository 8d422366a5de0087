// histdiff scores every well of a high-content imaging plate by how far the
// distribution of each of its cell-level features departs from the pooled
// distribution of the plate's reference wells.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/histdiff"
	"github.com/carbocation/histdiff/celldata"
	_ "github.com/carbocation/histdiff/compileinfoprint"
	"github.com/carbocation/histdiff/config"
	"github.com/carbocation/histdiff/hdscore"
	"github.com/carbocation/histdiff/platemap"
	"github.com/carbocation/histdiff/resultdb"
	"github.com/dustin/go-humanize"
)

// Safe for concurrent use by multiple goroutines
var client *storage.Client

func main() {
	fmt.Fprintf(os.Stderr, "%q\n", os.Args)

	cfg := config.DefaultConfig()
	var configPath string
	var idColumns, blocks flagSlice

	flag.StringVar(&configPath, "config", "", "(Optional) JSON or YAML file with the run settings. Flags that are set explicitly override it.")
	flag.StringVar(&cfg.Input, "input", "", "Tab-delimited cell-by-cell file (may be compressed, may be a gs:// path)")
	flag.StringVar(&cfg.Input, "i", "", "Shorthand for -input")
	flag.StringVar(&cfg.Output, "output", "", "Where to write the scores. Tab-delimited for .tsv/.txt, comma-delimited otherwise.")
	flag.StringVar(&cfg.Output, "o", "", "Shorthand for -output")
	flag.StringVar(&cfg.Controls, "controls", "", "Plate map (.csv, .tsv, .xls or .xlsx) that labels the REFERENCE wells")
	flag.StringVar(&cfg.Controls, "c", "", "Shorthand for -controls")
	flag.StringVar(&cfg.ReferenceColumn, "reference-column", cfg.ReferenceColumn, "Plate map column holding the REFERENCE labels")
	flag.StringVar(&cfg.WellColumn, "well-column", cfg.WellColumn, "Plate map column holding the well locations")
	flag.Var(&idColumns, "id", "Identifier column of the cell-by-cell file. Pass once per column (e.g., -id row -id col). Defaults to id.")
	flag.IntVar(&cfg.NBins, "nbins", cfg.NBins, "Number of histogram bins per feature")
	flag.Float64Var(&cfg.Factor, "factor", cfg.Factor, "Scale applied to each well's histogram before comparison with the control")
	flag.Var(&blocks, "block", "Comma-separated wells scored as one block. Pass once per block.")
	flag.StringVar(&cfg.BlocksFile, "blocks-file", "", "(Optional) delimited file with well and block columns")
	flag.StringVar(&cfg.Conflict, "conflict", cfg.Conflict, "What to do with wells scored by more than one block: overwrite, keep-first or reject")
	flag.StringVar(&cfg.ProblematicOut, "problematic-out", "", "(Optional) prefix for the list of features without any finite value")
	flag.StringVar(&cfg.SQLite, "sqlite", "", "(Optional) SQLite file or postgres:// URL that also receives the scores")
	flag.StringVar(&cfg.PlateName, "plate-name", "", "Plate name used in the SQLite database. Defaults to the input file name.")
	flag.IntVar(&cfg.Workers, "workers", 0, "Number of worker goroutines. Defaults to the number of CPUs.")
	flag.StringVar(&cfg.PlotFeature, "plot-feature", "", "(Optional) print an ASCII histogram of this feature's scores")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Print progress and diagnostics to stderr")
	flag.Parse()

	if configPath != "" {
		fileCfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalln(err)
		}
		cfg = mergeFlags(fileCfg, cfg)
	}
	if len(idColumns) > 0 {
		cfg.IDColumns = idColumns
	}
	for _, block := range blocks {
		cfg.Blocks = append(cfg.Blocks, platemap.ParseBlockFlag(block))
	}

	if cfg.Input == "" {
		flag.PrintDefaults()
		log.Fatalln("Please provide -input")
	}
	if cfg.Output == "" {
		log.Fatalln("Please provide -output")
	}
	if cfg.Controls == "" {
		log.Fatalln("Please provide -controls")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalln(err)
	}

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths.
	if histdiff.IsGSPath(cfg.Input) {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalln(err)
	}
}

// mergeFlags overlays the flags the user actually set onto the values read
// from the config file.
func mergeFlags(fileCfg, flagCfg *config.Config) *config.Config {
	out := *fileCfg
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input", "i":
			out.Input = flagCfg.Input
		case "output", "o":
			out.Output = flagCfg.Output
		case "controls", "c":
			out.Controls = flagCfg.Controls
		case "reference-column":
			out.ReferenceColumn = flagCfg.ReferenceColumn
		case "well-column":
			out.WellColumn = flagCfg.WellColumn
		case "nbins":
			out.NBins = flagCfg.NBins
		case "factor":
			out.Factor = flagCfg.Factor
		case "blocks-file":
			out.BlocksFile = flagCfg.BlocksFile
		case "conflict":
			out.Conflict = flagCfg.Conflict
		case "problematic-out":
			out.ProblematicOut = flagCfg.ProblematicOut
		case "sqlite":
			out.SQLite = flagCfg.SQLite
		case "plate-name":
			out.PlateName = flagCfg.PlateName
		case "workers":
			out.Workers = flagCfg.Workers
		case "plot-feature":
			out.PlotFeature = flagCfg.PlotFeature
		case "verbose":
			out.Verbose = flagCfg.Verbose
		}
	})

	return &out
}

func run(ctx context.Context, cfg *config.Config) error {
	var logger *log.Logger
	if cfg.Verbose {
		logger = log.Default()
	}

	pm, err := platemap.Load(cfg.Controls, cfg.WellColumn, cfg.ReferenceColumn)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		log.Printf("Plate map lists %d wells, %d of them %s\n", len(pm.Wells), len(pm.Controls), platemap.ReferenceLabel)
	}

	blocks := cfg.Blocks
	if cfg.BlocksFile != "" {
		fileBlocks, err := platemap.LoadBlocks(cfg.BlocksFile)
		if err != nil {
			return err
		}
		blocks = append(blocks, fileBlocks...)
	}

	conflict, err := hdscore.ParseConflictPolicy(cfg.Conflict)
	if err != nil {
		return err
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	opts := hdscore.DefaultOptions()
	opts.Open = celldata.Opener(histdiff.Opener(ctx, cfg.Input, client))
	opts.IDColumns = cfg.IDColumns
	opts.Controls = pm.Controls
	opts.NBins = cfg.NBins
	opts.Factor = cfg.Factor
	opts.Blocks = blocks
	opts.Universe = pm.Universe()
	opts.Workers = workers
	opts.Conflict = conflict
	if logger != nil {
		opts.Log = logger
	}

	res, err := hdscore.Calculate(ctx, opts)
	if err != nil {
		return err
	}

	if err := writeScores(cfg.Output, res.Table); err != nil {
		return err
	}
	log.Printf("Wrote scores for %d wells and %d features to %s\n", res.Table.Len(), len(res.Table.Features()), cfg.Output)

	if cfg.ProblematicOut != "" && len(res.Ranges.Problematic) > 0 {
		if err := celldata.WriteProblematicFile(cfg.ProblematicOut, res.Ranges.Problematic); err != nil {
			return err
		}
		log.Printf("Listed %d problematic features in %s\n", len(res.Ranges.Problematic), celldata.ProblematicPath(cfg.ProblematicOut))
	}

	if cfg.SQLite != "" {
		if err := writeSQLite(ctx, cfg, res.Table); err != nil {
			return err
		}
	}

	if cfg.Verbose {
		printDiagnostics(res)
	}

	if cfg.PlotFeature != "" {
		if err := hdscore.PlotScores(os.Stderr, res.Table, cfg.PlotFeature); err != nil {
			return err
		}
	}

	return nil
}

func writeScores(path string, table *hdscore.Table) error {
	if histdiff.IsGSPath(path) {
		return fmt.Errorf("%s: output must be a local path", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := table.WriteDelimited(f, histdiff.OutputDelimiter(path)); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func writeSQLite(ctx context.Context, cfg *config.Config, table *hdscore.Table) error {
	plateName := cfg.PlateName
	if plateName == "" {
		plateName = plateNameFromPath(cfg.Input)
	}

	db, err := resultdb.Open(cfg.SQLite)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := resultdb.Write(ctx, db, plateName, table)
	if err != nil {
		return err
	}
	log.Printf("Stored %s scores for plate %s in %s\n", humanize.Comma(int64(n)), plateName, cfg.SQLite)

	return nil
}

// plateNameFromPath strips the directory and every extension from path.
func plateNameFromPath(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}

	return name
}

func printDiagnostics(res *hdscore.Result) {
	log.Printf("Rows read: %s, skipped as malformed: %s, outside the plate: %s\n",
		humanize.Comma(res.RowsRead), humanize.Comma(res.RowsSkipped), humanize.Comma(res.RowsOutsidePlate))
	log.Printf("Timings: scan %s, accumulate %s, score %s\n", res.ScanTime, res.AccumulateTime, res.ScoreTime)

	for _, g := range res.Groups {
		log.Printf("Group %s: %d wells with data, %d scored, %d %s wells, %d features skipped, %d conflicts\n",
			g.Name, g.Wells, g.ScoredWells, len(g.ControlWells), hdscore.ControlLabel, len(g.SkippedFeatures), g.Conflicts)
	}

	sums, err := hdscore.Summarize(res.Table)
	if err != nil {
		log.Println(err)
		return
	}
	for _, s := range sums {
		log.Printf("%s: n=%d mean=%.4g sd=%.4g median=%.4g min=%.4g max=%.4g negative=%d\n",
			s.Feature, s.N, s.Mean, s.SD, s.Median, s.Min, s.Max, s.Negative)
	}
}
