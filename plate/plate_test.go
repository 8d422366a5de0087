package plate

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	for _, v := range []struct {
		In, Out string
	}{
		{"A01", "A1"},
		{"A1", "A1"},
		{"a01", "A1"},
		{" P24 ", "P24"},
		{"AA005", "AA5"},
		{"A", "A"},
		{"12", "12"},
		{"A01_field3", "A01_field3"},
		{"", ""},
		{"B00", "B0"},
	} {
		assert.Equal(t, v.Out, Canonical(v.In), "input %q", v.In)
	}
}

func TestCanonicalControlsMatchAccumulatedKeys(t *testing.T) {
	controls := CanonicalAll([]string{"A01", "P24", "k12"})
	u := Default()
	for _, c := range controls {
		assert.True(t, u.Contains(c), "%s should be in the default plate", c)
	}
	assert.Equal(t, CompositeID([]string{"A1"}), controls[0])
}

func TestCompositeID(t *testing.T) {
	assert.Equal(t, "A1", CompositeID([]string{"A01"}))
	assert.Equal(t, "plate1_A01", CompositeID([]string{"plate1", "A01"}))
	assert.Equal(t, "A_1", CompositeID([]string{"A", "1"}))
}

func TestDefaultUniverse(t *testing.T) {
	u := Default()
	require.Equal(t, 384, u.Len())
	assert.Equal(t, "A1", u.Wells()[0])
	assert.Equal(t, "A24", u.Wells()[23])
	assert.Equal(t, "P24", u.Wells()[383])
	assert.False(t, u.Contains("Q1"))
	assert.False(t, u.Contains("A25"))
}

func TestStandardUniverses(t *testing.T) {
	for size, last := range map[int]string{96: "H12", 384: "P24", 1536: "AF48"} {
		u, err := Standard(size)
		require.NoError(t, err)
		assert.Equal(t, size, u.Len())
		assert.Equal(t, last, u.Wells()[u.Len()-1])
	}

	_, err := Standard(100)
	assert.Error(t, err)
}

func TestNewUniverseDeduplicates(t *testing.T) {
	u := NewUniverse([]string{"B02", "A1", "B2", "A01", " "})
	assert.Equal(t, []string{"B2", "A1"}, u.Wells())
	assert.Equal(t, []string{"A1", "B2"}, u.Sorted())
}

func TestLess(t *testing.T) {
	wells := []string{"B1", "A10", "AA1", "A2", "P24", "zzz", "A1", "CNTRL"}
	sort.Slice(wells, func(i, j int) bool { return Less(wells[i], wells[j]) })
	assert.Equal(t, []string{"A1", "A2", "A10", "B1", "P24", "AA1", "CNTRL", "zzz"}, wells)
}

func TestBuildGroupsWholePlate(t *testing.T) {
	u := Default()
	groups := BuildGroups(u, nil)
	require.Len(t, groups, 1)
	assert.Equal(t, WholePlateGroup, groups[0].Name)
	assert.Equal(t, u.Wells(), groups[0].Wells)
}

func TestBuildGroupsLeftover(t *testing.T) {
	u := NewUniverse([]string{"A1", "A2", "A3", "B1", "B2"})
	groups := BuildGroups(u, [][]string{{"A01", "A02"}, {"B1", "B01"}})

	require.Len(t, groups, 3)
	assert.Equal(t, Group{Name: "block1", Wells: []string{"A1", "A2"}}, groups[0])
	assert.Equal(t, Group{Name: "block2", Wells: []string{"B1"}}, groups[1])
	assert.Equal(t, Group{Name: LeftoverGroup, Wells: []string{"A3", "B2"}}, groups[2])
}

func TestBuildGroupsNoEmptyLeftover(t *testing.T) {
	u := NewUniverse([]string{"A1", "A2"})
	groups := BuildGroups(u, [][]string{{"A1", "A2"}})
	require.Len(t, groups, 1)
	assert.Equal(t, "block1", groups[0].Name)
}

// Every universe well is processed exactly once when the blocks partition
// part of the plate.
func TestGroupCompleteness(t *testing.T) {
	u := Default()
	blocks := [][]string{
		{"A01", "A02", "B01", "B02"},
		{"C1", "C2", "C3"},
		{"P24"},
	}

	seen := make(map[string]int)
	for _, g := range BuildGroups(u, blocks) {
		for _, w := range g.Wells {
			seen[w]++
		}
	}

	require.Len(t, seen, u.Len())
	for _, w := range u.Wells() {
		assert.Equal(t, 1, seen[w], "well %s", w)
	}
	assert.Empty(t, OverlappingWells(BuildGroups(u, blocks)))
}

func TestOverlaps(t *testing.T) {
	u := NewUniverse([]string{"A1", "A2", "A3"})
	groups := BuildGroups(u, [][]string{{"A1", "A2"}, {"A2"}})

	assert.Equal(t, map[string][]string{"A2": {"block1", "block2"}}, Overlaps(groups))
	assert.Equal(t, []string{"A2"}, OverlappingWells(groups))
}
