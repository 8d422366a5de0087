package hist

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestNew(t *testing.T) {
	h := New(20, 0, 1)

	assert.Equal(t, 20, h.NBins())
	assert.Equal(t, 0.0, h.Low())
	assert.Equal(t, 1.0, h.High())
	assert.Equal(t, 0.05, h.Width())
	assert.Len(t, h.Counts(), 20)
	assert.Equal(t, 0.0, h.Sum())

	centers := h.Centers()
	require.Len(t, centers, 20)
	for i, c := range centers {
		assert.Equal(t, 0+(float64(i)+0.5)*h.Width(), c)
	}
}

func TestFill(t *testing.T) {
	h := New(5, 0, 1)
	h.Fill(0.1, 0.2, 0.3, 0.4, 0.5)
	assert.Equal(t, []float64{1, 2, 2, 0, 0}, h.Counts())
}

func TestFillBoundaries(t *testing.T) {
	h := New(5, 0, 1)
	h.Fill(0.0, 0.2, 0.4, 0.6, 0.8, 1.0, -0.1, 1.1)

	// 0.6/0.2 truncates to bin 2; 1.0 belongs to the last bin; -0.1 and 1.1
	// are dropped.
	assert.Equal(t, []float64{1, 1, 2, 0, 2}, h.Counts())
}

func TestFillDropsNaNAndInf(t *testing.T) {
	h := New(4, -1, 1)
	h.Fill(math.NaN(), math.Inf(1), math.Inf(-1))
	assert.Equal(t, 0.0, h.Sum())
}

func TestSmooth(t *testing.T) {
	for _, v := range []struct {
		In, Out []float64
	}{
		{[]float64{1, 2, 3, 4, 5}, []float64{1.25, 2, 3, 4, 4.75}},
		{[]float64{7}, []float64{7}},
		{[]float64{4, 0}, []float64{3, 1}},
		{[]float64{0, 4, 0}, []float64{1, 2, 1}},
	} {
		assert.Equal(t, v.Out, Smoothed(v.In, 0.25), "input %v", v.In)
	}

	h := New(5, 0, 5)
	h.Fill(0, 1, 1, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4, 4)
	h.Smooth(0.25)
	assert.Equal(t, []float64{1.25, 2, 3, 4, 4.75}, h.Counts())
}

func TestNormalize(t *testing.T) {
	empty := New(3, 0, 1)
	empty.Normalize()
	assert.Equal(t, []float64{0, 0, 0}, empty.Counts())

	h := New(4, 0, 4)
	h.Fill(0, 1, 1, 3)
	h.Normalize()
	assert.Equal(t, []float64{0.25, 0.5, 0, 0.25}, h.Counts())
	assert.InDelta(t, 1.0, h.Sum(), 1e-12)

	once := append([]float64(nil), h.Counts()...)
	h.Normalize()
	assert.True(t, floats.EqualApprox(once, h.Counts(), 1e-12))
}

func TestAdd(t *testing.T) {
	a := New(3, 0, 3)
	b := New(3, 0, 3)
	a.Fill(0, 1)
	b.Fill(1, 2, 3)

	require.NoError(t, a.Add(b))
	assert.Equal(t, []float64{1, 2, 2}, a.Counts())
	assert.Equal(t, []float64{0, 1, 2}, b.Counts())
}

func TestAddMismatch(t *testing.T) {
	for _, other := range []*Hist{New(4, 0, 3), New(3, 1, 3), New(3, 0, 4)} {
		err := New(3, 0, 3).Add(other)
		assert.True(t, errors.Is(err, ErrRangeMismatch), "%v", err)
	}
}

func TestClone(t *testing.T) {
	a := New(3, 0, 3)
	a.Fill(1)
	b := a.Clone()
	b.Fill(1)

	assert.Equal(t, []float64{0, 1, 0}, a.Counts())
	assert.Equal(t, []float64{0, 2, 0}, b.Counts())
	assert.True(t, a.SameBins(b))
}

func TestSquareDiffSign(t *testing.T) {
	ctrl := []float64{2, 3, 4}
	exp := []float64{1, 2, 3}

	// ctrl proxy 2+6+12 = 20, exp proxy 1+4+9 = 14, so the sign is negative
	// and every bin differs by exactly one.
	score, err := Score(exp, ctrl, 1.0)
	require.NoError(t, err)
	assert.Equal(t, -3.0, score)

	score, err = Score(ctrl, exp, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
}

func TestSquareDiffTiesArePositive(t *testing.T) {
	ctrl := []float64{0.5, 0, 0.5}
	exp := []float64{0, 1, 0}

	score, err := Score(exp, ctrl, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, score, 1e-12)

	same, err := Score(ctrl, ctrl, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, same)
}

func TestSquareDiffFactor(t *testing.T) {
	scores, err := SquareDiff([][]float64{{1, 1}, {0, 2}}, []float64{1, 1}, 2.0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 10}, scores)
}

func TestSquareDiffShapeMismatch(t *testing.T) {
	_, err := SquareDiff([][]float64{{1, 2, 3}, {1, 2}}, []float64{1, 2, 3}, 1)
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}
