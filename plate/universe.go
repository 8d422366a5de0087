package plate

import (
	"fmt"
	"sort"
	"strconv"
)

// Universe is the ordered, deduplicated set of wells whose rows are eligible
// for scoring.
type Universe struct {
	wells []string
	index map[string]int
}

// NewUniverse builds a universe from arbitrary well labels. Labels are
// canonicalized; the first occurrence of a well fixes its position.
func NewUniverse(wells []string) *Universe {
	u := &Universe{
		wells: make([]string, 0, len(wells)),
		index: make(map[string]int, len(wells)),
	}

	for _, w := range wells {
		w = Canonical(w)
		if w == "" {
			continue
		}
		if _, exists := u.index[w]; exists {
			continue
		}
		u.index[w] = len(u.wells)
		u.wells = append(u.wells, w)
	}

	return u
}

// Default returns the 384-well universe, A1..P24.
func Default() *Universe {
	u, _ := Standard(384)
	return u
}

// Standard returns the universe for a standard plate format. Supported sizes
// are 96 (8x12), 384 (16x24) and 1536 (32x48).
func Standard(size int) (*Universe, error) {
	var rows, cols int
	switch size {
	case 96:
		rows, cols = 8, 12
	case 384:
		rows, cols = 16, 24
	case 1536:
		rows, cols = 32, 48
	default:
		return nil, fmt.Errorf("unsupported plate size %d (expected 96, 384 or 1536)", size)
	}

	wells := make([]string, 0, rows*cols)
	for r := 0; r < rows; r++ {
		row := rowName(r)
		for c := 1; c <= cols; c++ {
			wells = append(wells, row+strconv.Itoa(c))
		}
	}

	return NewUniverse(wells), nil
}

// rowName maps 0 -> A, 25 -> Z, 26 -> AA, 31 -> AF.
func rowName(r int) string {
	if r < 26 {
		return string(rune('A' + r))
	}

	return string(rune('A'+r/26-1)) + string(rune('A'+r%26))
}

// Contains reports whether the canonical well w is part of the universe.
func (u *Universe) Contains(w string) bool {
	_, ok := u.index[w]
	return ok
}

// Wells returns the wells in universe order. The slice must not be modified.
func (u *Universe) Wells() []string {
	return u.wells
}

// Len is the number of wells in the universe.
func (u *Universe) Len() int {
	return len(u.wells)
}

// Sorted returns a copy of the wells in natural plate order.
func (u *Universe) Sorted() []string {
	out := append([]string(nil), u.wells...)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}
