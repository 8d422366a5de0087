package hdscore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/histdiff/plate"
	"gopkg.in/guregu/null.v3"
)

// ErrConflict is returned by Merge under the Reject policy when a well has
// already been scored by another group.
var ErrConflict = errors.New("well was already scored by another group")

// ConflictPolicy decides what happens when a well is scored by more than one
// group.
type ConflictPolicy int

const (
	// Overwrite lets the most recently merged group win.
	Overwrite ConflictPolicy = iota
	// KeepFirst keeps the scores of the first group that scored the well.
	KeepFirst
	// Reject fails the merge.
	Reject
)

func (p ConflictPolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case KeepFirst:
		return "keep-first"
	case Reject:
		return "reject"
	}

	return fmt.Sprintf("ConflictPolicy(%d)", int(p))
}

// ParseConflictPolicy accepts the names printed by String. The empty string
// means Overwrite.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "keep-first", "keepfirst", "first":
		return KeepFirst, nil
	case "reject":
		return Reject, nil
	}

	return Overwrite, fmt.Errorf("unknown conflict policy %q (want overwrite, keep-first or reject)", s)
}

// Table is the well -> feature -> score result of a run.
type Table struct {
	scores   Scores
	owner    map[string]string
	features map[string]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		scores:   make(Scores),
		owner:    make(map[string]string),
		features: make(map[string]struct{}),
	}
}

// Merge adds the scores of one group. It returns the number of wells that had
// already been scored by a different group.
func (t *Table) Merge(group string, scores Scores, policy ConflictPolicy) (int, error) {
	wells := make([]string, 0, len(scores))
	for well := range scores {
		wells = append(wells, well)
	}
	sort.Slice(wells, func(i, j int) bool { return plate.Less(wells[i], wells[j]) })

	conflicts := 0
	for _, well := range wells {
		prev, seen := t.owner[well]
		if seen && prev != group {
			conflicts++
			switch policy {
			case KeepFirst:
				continue
			case Reject:
				return conflicts, fmt.Errorf("well %s in group %s: %w (%s)", well, group, ErrConflict, prev)
			}
		}

		if (seen && prev != group) || t.scores[well] == nil {
			t.scores[well] = make(map[string]float64, len(scores[well]))
		}
		for feature, v := range scores[well] {
			t.scores[well][feature] = v
			t.features[feature] = struct{}{}
		}
		t.owner[well] = group
	}

	return conflicts, nil
}

// Get returns the score of (well, feature), invalid when there is none.
func (t *Table) Get(well, feature string) null.Float {
	v, ok := t.scores[well][feature]
	if !ok {
		return null.NewFloat(0, false)
	}

	return null.FloatFrom(v)
}

// Group returns the group whose scores a well carries.
func (t *Table) Group(well string) string {
	return t.owner[well]
}

// Wells returns the scored wells in plate order.
func (t *Table) Wells() []string {
	out := make([]string, 0, len(t.scores))
	for well := range t.scores {
		out = append(out, well)
	}
	sort.Slice(out, func(i, j int) bool { return plate.Less(out[i], out[j]) })

	return out
}

// Features returns the scored features sorted by name.
func (t *Table) Features() []string {
	out := make([]string, 0, len(t.features))
	for f := range t.features {
		out = append(out, f)
	}
	sort.Strings(out)

	return out
}

// Len is the number of scored wells.
func (t *Table) Len() int {
	return len(t.scores)
}

// FormatScore renders a cell of the result table. Missing scores are "NaN".
func FormatScore(v null.Float) string {
	if !v.Valid {
		return "NaN"
	}

	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

// WriteDelimited writes the table with a header of "id" followed by the
// sorted features and one row per well. Fields holding the delimiter are
// quoted.
func (t *Table) WriteDelimited(w io.Writer, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	features := t.Features()

	if err := cw.Write(append([]string{"id"}, features...)); err != nil {
		return err
	}

	row := make([]string, len(features)+1)
	for _, well := range t.Wells() {
		row[0] = well
		for i, feature := range features {
			row[i+1] = FormatScore(t.Get(well, feature))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
