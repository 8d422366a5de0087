package celldata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/carbocation/histdiff/plate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = "id\tarea\tconstant\tzero\tempty\n" +
	"A01\t1.0\t5\t0\tNA\n" +
	"A01\t2.0\t5\t0\tNA\n" +
	"A2\t3.0\t5\t0\t\n" +
	"B01\t4.0\t5\t0\tNaN\n" +
	"B1\tnotanumber\t5\t0\tInf\n" +
	"Z99\t100\t5\t0\tNA\n"

func opener(s string) Opener {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(s)), nil
	}
}

func TestWiden(t *testing.T) {
	assert.Equal(t, Range{Low: 5, High: 7.5}, Widen(5, 5))
	assert.Equal(t, Range{Low: 0, High: 1}, Widen(0, 0))
	// A negative constant still ends up inside its range.
	assert.Equal(t, Range{Low: -4, High: -2}, Widen(-4, -4))
	assert.Equal(t, Range{Low: 1, High: 3}, Widen(1, 3))
}

func TestScanRanges(t *testing.T) {
	r, err := ScanRanges(context.Background(), opener(sampleTable), []string{"id"}, Options{Workers: 2, BatchSize: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"area", "constant", "zero"}, r.Features)
	assert.Equal(t, []string{"empty"}, r.Problematic)
	assert.Equal(t, Range{Low: 1, High: 100}, r.Ranges["area"])
	assert.Equal(t, Range{Low: 5, High: 7.5}, r.Ranges["constant"])
	assert.Equal(t, Range{Low: 0, High: 1}, r.Ranges["zero"])
	assert.EqualValues(t, 6, r.RowsRead)
	assert.EqualValues(t, 0, r.RowsSkipped)

	st := r.Stats["area"]
	assert.EqualValues(t, 5, st.N)
	assert.InDelta(t, 22.0, st.Mean, 1e-9)
}

func TestScanRangesSkipsMalformedRows(t *testing.T) {
	table := "id\ta\tb\n" +
		"A1\t1\t2\n" +
		"A1\t3\n" +
		"A1\t4\t5\t6\n" +
		"A2\t7\t8\n"

	r, err := ScanRanges(context.Background(), opener(table), []string{"id"}, Options{Workers: 1})
	require.NoError(t, err)

	assert.EqualValues(t, 2, r.RowsRead)
	assert.EqualValues(t, 2, r.RowsSkipped)
	assert.Equal(t, Range{Low: 1, High: 7}, r.Ranges["a"])
}

func TestMissingIDColumn(t *testing.T) {
	_, err := ScanRanges(context.Background(), opener(sampleTable), []string{"well"}, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumn))
}

func TestOpenerError(t *testing.T) {
	failing := func() (io.ReadCloser, error) { return nil, fmt.Errorf("cannot open") }
	_, err := ScanRanges(context.Background(), failing, []string{"id"}, Options{})
	assert.Error(t, err)
}

func TestAccumulate(t *testing.T) {
	ctx := context.Background()
	r, err := ScanRanges(ctx, opener(sampleTable), []string{"id"}, Options{})
	require.NoError(t, err)

	acc, err := Accumulate(ctx, opener(sampleTable), []string{"id"}, r, plate.Default(), 4, Options{Workers: 3, BatchSize: 1})
	require.NoError(t, err)

	assert.EqualValues(t, 1, acc.RowsOutsidePlate)
	assert.Len(t, acc.Histograms, 3)
	require.Contains(t, acc.Histograms, "A1")
	require.Contains(t, acc.Histograms, "B1")
	assert.NotContains(t, acc.Histograms, "empty")

	a1 := acc.Histograms["A1"]
	assert.NotContains(t, a1, "empty")
	assert.Equal(t, 2.0, a1["area"].Sum())
	assert.Equal(t, []float64{2, 0, 0, 0}, a1["constant"].Counts())

	// The unparseable area value in B1 is dropped by fill.
	assert.Equal(t, 1.0, acc.Histograms["B1"]["area"].Sum())
	assert.Equal(t, 2.0, acc.Histograms["B1"]["zero"].Sum())
}

func TestAccumulateRejectsZeroBins(t *testing.T) {
	r := &Ranges{Features: []string{"a"}, Ranges: map[string]Range{"a": {0, 1}}}
	_, err := Accumulate(context.Background(), opener("id\ta\nA1\t0.5\n"), []string{"id"}, r, plate.Default(), 0, Options{})
	assert.Error(t, err)
}

func TestAccumulateOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	wells := []string{"A1", "A02", "B3", "C04", "P24"}
	var rows []string
	for i := 0; i < 2000; i++ {
		rows = append(rows, fmt.Sprintf("%s\t%g\t%g", wells[rng.Intn(len(wells))], rng.NormFloat64(), rng.ExpFloat64()))
	}

	render := func(rows []string) string {
		return "id\tx\ty\n" + strings.Join(rows, "\n") + "\n"
	}

	ctx := context.Background()
	base := render(rows)
	ranges, err := ScanRanges(ctx, opener(base), []string{"id"}, Options{Workers: 1})
	require.NoError(t, err)

	want, err := Accumulate(ctx, opener(base), []string{"id"}, ranges, plate.Default(), 20, Options{Workers: 1})
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16} {
		perm := make([]string, len(rows))
		copy(perm, rows)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })

		got, err := Accumulate(ctx, opener(render(perm)), []string{"id"}, ranges, plate.Default(), 20, Options{Workers: workers, BatchSize: 7})
		require.NoError(t, err)
		assert.Equal(t, want.Histograms, got.Histograms, "workers=%d", workers)
	}
}

func TestCompositeIdentifier(t *testing.T) {
	table := "row\tcol\tv\n" +
		"A\t1\t1\n" +
		" A\t1\t2\n" +
		"B\t2\t3\n" +
		"C\t3\t4\n"

	ctx := context.Background()
	r, err := ScanRanges(ctx, opener(table), []string{"row", "col"}, Options{})
	require.NoError(t, err)

	u := plate.NewUniverse([]string{"A_1", "B_2"})
	acc, err := Accumulate(ctx, opener(table), []string{"row", "col"}, r, u, 2, Options{})
	require.NoError(t, err)

	assert.Len(t, acc.Histograms, 2)
	assert.EqualValues(t, 1, acc.RowsOutsidePlate)
	assert.Equal(t, 2.0, acc.Histograms[plate.CompositeID([]string{"A", "1"})]["v"].Sum())
}

func TestWellHistogramsUnknownFeature(t *testing.T) {
	wh := NewWellHistograms(3, map[string]Range{"a": {0, 1}})
	require.NoError(t, wh.Fill("A1", "a", 0.5))
	assert.Error(t, wh.Fill("A1", "b", 0.5))
	assert.Equal(t, 1, wh.Len())
}

func TestWriteProblematic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProblematic(&buf, []string{"f1", "f2"}))
	assert.Equal(t, "f1,noValues\nf2,noValues\n", buf.String())
	assert.Equal(t, "out_problematicFeats.csv", ProblematicPath("out"))
}
