// Package celldata reads cell-by-cell measurement tables and turns them into
// per-well, per-feature histograms. A table is tab-delimited with a header
// row; the identifier columns name the well of each cell and every other
// column is a numeric feature.
package celldata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/carbocation/histdiff/plate"
	"github.com/carbocation/pfx"
)

// ErrMissingColumn is returned when a required column is absent from the
// table header.
var ErrMissingColumn = errors.New("column not found in header")

// Opener opens a fresh reader over the same table. The scanner and the
// accumulator each read the table once, so the opener is called twice.
type Opener func() (io.ReadCloser, error)

// Table streams the rows of a cell-by-cell table.
type Table struct {
	r          *csv.Reader
	header     []string
	idIdx      []int
	featureIdx []int

	rows    int64
	skipped int64
}

// OpenTable reads the header of r and resolves the identifier columns.
func OpenTable(r io.Reader, idCols []string) (*Table, error) {
	if len(idCols) == 0 {
		return nil, pfx.Err(fmt.Errorf("at least one identifier column is required"))
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, pfx.Err(fmt.Errorf("input has no header row"))
	} else if err != nil {
		return nil, pfx.Err(err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := &Table{
		r:      cr,
		header: header,
	}

	t.idIdx, err = readIDHeader(header, idCols)
	if err != nil {
		return nil, err
	}

	isID := make(map[int]struct{}, len(t.idIdx))
	for _, i := range t.idIdx {
		isID[i] = struct{}{}
	}
	for i := range header {
		if _, ok := isID[i]; !ok {
			t.featureIdx = append(t.featureIdx, i)
		}
	}

	return t, nil
}

func readIDHeader(header, idCols []string) ([]int, error) {
	out := make([]int, 0, len(idCols))
	for _, want := range idCols {
		found := -1
		for col, v := range header {
			if v != want {
				continue
			}
			if found >= 0 {
				return nil, fmt.Errorf("identifier column %q appears more than once in the header", want)
			}
			found = col
		}
		if found < 0 {
			return nil, fmt.Errorf("identifier column %q: %w", want, ErrMissingColumn)
		}
		out = append(out, found)
	}

	return out, nil
}

// Header returns the column names.
func (t *Table) Header() []string {
	return t.header
}

// Features returns the names of every non-identifier column in header order.
func (t *Table) Features() []string {
	out := make([]string, 0, len(t.featureIdx))
	for _, i := range t.featureIdx {
		out = append(out, t.header[i])
	}

	return out
}

// Columns resolves feature names to column positions.
func (t *Table) Columns(features []string) ([]int, error) {
	pos := make(map[string]int, len(t.header))
	for i, v := range t.header {
		if _, exists := pos[v]; !exists {
			pos[v] = i
		}
	}

	out := make([]int, 0, len(features))
	for _, f := range features {
		i, ok := pos[f]
		if !ok {
			return nil, fmt.Errorf("feature %q: %w", f, ErrMissingColumn)
		}
		out = append(out, i)
	}

	return out, nil
}

// Next returns the next well-formed row. Rows with the wrong number of fields
// and rows the CSV layer cannot parse are skipped and counted. io.EOF marks
// the end of the table.
func (t *Table) Next() ([]string, error) {
	for {
		record, err := t.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			atomic.AddInt64(&t.skipped, 1)
			continue
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		if len(record) != len(t.header) {
			atomic.AddInt64(&t.skipped, 1)
			continue
		}

		atomic.AddInt64(&t.rows, 1)
		return record, nil
	}
}

// Rows is the number of well-formed rows returned so far.
func (t *Table) Rows() int64 {
	return atomic.LoadInt64(&t.rows)
}

// Skipped is the number of malformed rows skipped so far.
func (t *Table) Skipped() int64 {
	return atomic.LoadInt64(&t.skipped)
}

// WellID returns the canonical well of a row.
func (t *Table) WellID(record []string) string {
	if len(t.idIdx) == 1 {
		return plate.Canonical(record[t.idIdx[0]])
	}

	values := make([]string, 0, len(t.idIdx))
	for _, i := range t.idIdx {
		values = append(values, record[i])
	}

	return plate.CompositeID(values)
}

// ParseValue parses a feature cell. Unparseable cells become NaN.
func ParseValue(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}

	return v
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
