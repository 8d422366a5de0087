package platemap

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/histdiff"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// BlockRow is one line of a block file: a well and the block it belongs to.
// A well may be listed under several blocks.
type BlockRow struct {
	Well  string `csv:"well"`
	Block string `csv:"block"`
}

// LoadBlocks reads a delimited block file with "well" and "block" columns.
// Blocks are returned in the order they first appear, each holding its wells
// in file order.
func LoadBlocks(path string) ([][]string, error) {
	data, err := histdiff.ReadAll(context.Background(), path, nil)
	if err != nil {
		return nil, pfx.Err(err)
	}

	blocks, err := ParseBlocks(data)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return blocks, nil
}

// ParseBlocks is LoadBlocks over the content of a block file.
func ParseBlocks(data []byte) ([][]string, error) {
	delim := histdiff.DetermineDelimiterBytes(data)

	records := []*BlockRow{}

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		return r
	})

	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, err
	}

	var names []string
	members := make(map[string][]string)
	for _, rec := range records {
		block := strings.TrimSpace(rec.Block)
		well := strings.TrimSpace(rec.Well)
		if block == "" || well == "" {
			continue
		}
		if _, ok := members[block]; !ok {
			names = append(names, block)
		}
		members[block] = append(members[block], well)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no blocks found; expected %q and %q columns", "well", "block")
	}

	out := make([][]string, 0, len(names))
	for _, name := range names {
		out = append(out, members[name])
	}

	return out, nil
}

// ParseBlockFlag splits a comma-separated list of wells, as given on the
// command line.
func ParseBlockFlag(s string) []string {
	var out []string
	for _, w := range strings.Split(s, ",") {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}

	return out
}
