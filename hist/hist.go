// Package hist implements the fixed-bin one-dimensional histograms that
// HistDiff compares, along with the signed square-difference score.
package hist

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ErrRangeMismatch is returned when two histograms with different binning are
// combined.
var ErrRangeMismatch = errors.New("histograms do not share bin count and range")

// Hist is a histogram over [Low, High] with NBins equal-width bins. The range
// is fixed at construction; only the counts change.
type Hist struct {
	nbins  int
	low    float64
	high   float64
	width  float64
	counts []float64
}

// New returns an empty histogram. nbins must be positive and high must be
// greater than low.
func New(nbins int, low, high float64) *Hist {
	if nbins < 1 {
		panic(fmt.Sprintf("hist: nbins must be positive, got %d", nbins))
	}

	return &Hist{
		nbins:  nbins,
		low:    low,
		high:   high,
		width:  (high - low) / float64(nbins),
		counts: make([]float64, nbins),
	}
}

func (h *Hist) NBins() int { return h.nbins }
func (h *Hist) Low() float64 { return h.low }
func (h *Hist) High() float64 { return h.high }
func (h *Hist) Width() float64 { return h.width }
func (h *Hist) Counts() []float64 { return h.counts }
func (h *Hist) Sum() float64 { return floats.Sum(h.counts) }
func (h *Hist) SameBins(o *Hist) bool {
	return h.nbins == o.nbins && h.low == o.low && h.high == o.high
}

// Centers returns the midpoint of every bin.
func (h *Hist) Centers() []float64 {
	out := make([]float64, h.nbins)
	for i := range out {
		out[i] = h.low + (float64(i)+0.5)*h.width
	}

	return out
}

// Fill deposits each value into its bin. Values in [Low, High) land in bin
// floor((v-Low)/Width), a value exactly equal to High lands in the last bin,
// and anything else (including NaN) is dropped.
func (h *Hist) Fill(values ...float64) {
	for _, v := range values {
		if v >= h.low && v < h.high {
			bin := int((v - h.low) / h.width)
			// Rounding can push values just below High past the last bin.
			if bin >= h.nbins {
				bin = h.nbins - 1
			}
			h.counts[bin]++
		} else if v == h.high {
			h.counts[h.nbins-1]++
		}
	}
}

// Smooth replaces the counts with their edge-aware three-point exponential
// smoothing.
func (h *Hist) Smooth(alpha float64) {
	h.counts = Smoothed(h.counts, alpha)
}

// Normalize scales the counts to sum to one. An empty histogram stays empty.
func (h *Hist) Normalize() {
	h.counts = Normalized(h.counts)
}

// Add accumulates other's counts into h.
func (h *Hist) Add(other *Hist) error {
	if !h.SameBins(other) {
		return fmt.Errorf("%w: (%d, %g, %g) vs (%d, %g, %g)", ErrRangeMismatch,
			h.nbins, h.low, h.high, other.nbins, other.low, other.high)
	}

	floats.Add(h.counts, other.counts)

	return nil
}

// Clone returns a deep copy of h.
func (h *Hist) Clone() *Hist {
	out := *h
	out.counts = append([]float64(nil), h.counts...)
	return &out
}

// Smoothed returns the smoothed copy of x. For interior bins
// s[i] = x[i] + alpha*(x[i-1]-x[i]) + alpha*(x[i+1]-x[i]); the end bins only
// borrow from their single neighbour. A single bin is returned unchanged.
func Smoothed(x []float64, alpha float64) []float64 {
	n := len(x)
	out := make([]float64, n)

	for i := range x {
		switch {
		case n == 1:
			out[i] = x[i]
		case i == 0:
			out[i] = x[i] + alpha*(x[i+1]-x[i])
		case i == n-1:
			out[i] = alpha*(x[i-1]-x[i]) + x[i]
		default:
			out[i] = alpha*(x[i-1]-x[i]) + x[i] + alpha*(x[i+1]-x[i])
		}
	}

	return out
}

// Normalized returns x divided by its sum, or all zeros if the sum is zero.
func Normalized(x []float64) []float64 {
	out := make([]float64, len(x))

	sum := floats.Sum(x)
	if sum == 0 || math.IsNaN(sum) {
		return out
	}

	for i, v := range x {
		out[i] = v / sum
	}

	return out
}
