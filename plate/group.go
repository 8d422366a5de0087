package plate

import (
	"fmt"
	"sort"
)

// LeftoverGroup names the group that collects every well not claimed by an
// explicit block.
const LeftoverGroup = "leftover"

// WholePlateGroup names the single group used when no blocks are defined.
const WholePlateGroup = "plate"

// Group is a named subset of wells over which controls are aggregated and
// scores are computed independently of every other group.
type Group struct {
	Name  string
	Wells []string
}

// Members returns the group's wells as a set.
func (g Group) Members() map[string]struct{} {
	out := make(map[string]struct{}, len(g.Wells))
	for _, w := range g.Wells {
		out[w] = struct{}{}
	}

	return out
}

// BuildGroups turns block definitions into the groups to be scored. Without
// blocks, the whole universe is one group. With blocks, each block becomes a
// group (wells canonicalized, duplicates within a block removed) and one
// final leftover group holds the universe wells that no block claims. The
// leftover group is omitted when it would be empty.
func BuildGroups(u *Universe, blocks [][]string) []Group {
	if len(blocks) == 0 {
		return []Group{{
			Name:  WholePlateGroup,
			Wells: append([]string(nil), u.Wells()...),
		}}
	}

	claimed := make(map[string]struct{})
	groups := make([]Group, 0, len(blocks)+1)
	for i, block := range blocks {
		g := Group{Name: fmt.Sprintf("block%d", i+1)}

		seen := make(map[string]struct{}, len(block))
		for _, w := range CanonicalAll(block) {
			if w == "" {
				continue
			}
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			claimed[w] = struct{}{}
			g.Wells = append(g.Wells, w)
		}

		groups = append(groups, g)
	}

	leftover := Group{Name: LeftoverGroup}
	for _, w := range u.Wells() {
		if _, ok := claimed[w]; !ok {
			leftover.Wells = append(leftover.Wells, w)
		}
	}
	if len(leftover.Wells) > 0 {
		groups = append(groups, leftover)
	}

	return groups
}

// Overlaps reports, for each well that belongs to more than one group, the
// names of those groups in processing order.
func Overlaps(groups []Group) map[string][]string {
	owners := make(map[string][]string)
	for _, g := range groups {
		for _, w := range g.Wells {
			owners[w] = append(owners[w], g.Name)
		}
	}

	out := make(map[string][]string)
	for w, names := range owners {
		if len(names) > 1 {
			out[w] = names
		}
	}

	return out
}

// OverlappingWells lists the keys of Overlaps in natural plate order.
func OverlappingWells(groups []Group) []string {
	overlaps := Overlaps(groups)
	out := make([]string, 0, len(overlaps))
	for w := range overlaps {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return Less(out[i], out[j]) })

	return out
}
