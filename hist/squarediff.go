package hist

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrShapeMismatch is returned when an experimental histogram does not have
// as many bins as the control it is compared against.
var ErrShapeMismatch = errors.New("experimental and control histograms differ in length")

// SquareDiff is the HistDiff workhorse. For each experimental vector it returns
// sign * sum_i (ctrl[i] - factor*exp[i])^2, where sign is -1 when the control's
// weighted bin position sum_i ctrl[i]*(i+1) exceeds the experimental one and
// +1 otherwise (ties are positive). Vectors are expected to be normalized.
func SquareDiff(exp [][]float64, ctrl []float64, factor float64) ([]float64, error) {
	idx := make([]float64, len(ctrl))
	for i := range idx {
		idx[i] = float64(i + 1)
	}
	ctrlProxy := floats.Dot(ctrl, idx)

	out := make([]float64, len(exp))
	diff := make([]float64, len(ctrl))
	for w, e := range exp {
		if len(e) != len(ctrl) {
			return nil, fmt.Errorf("%w: vector %d has %d bins, control has %d", ErrShapeMismatch, w, len(e), len(ctrl))
		}

		sign := 1.0
		if ctrlProxy > floats.Dot(e, idx) {
			sign = -1.0
		}

		// diff = ctrl - factor*e
		floats.AddScaledTo(diff, ctrl, -factor, e)

		out[w] = sign * floats.Dot(diff, diff)
	}

	return out, nil
}

// Score is SquareDiff for a single experimental vector.
func Score(exp, ctrl []float64, factor float64) (float64, error) {
	out, err := SquareDiff([][]float64{exp}, ctrl, factor)
	if err != nil {
		return 0, err
	}

	return out[0], nil
}
