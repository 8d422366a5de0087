package hdscore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/carbocation/histdiff/hist"
	"github.com/carbocation/histdiff/plate"
	"golang.org/x/sync/errgroup"
)

// Scores maps well -> feature -> score.
type Scores map[string]map[string]float64

// ScoreGroup scores every well of a prepared group against the group's pooled
// control, one feature per task with at most workers tasks at a time.
// Features without a control histogram are skipped.
func ScoreGroup(ctx context.Context, gh *GroupHistograms, features []string, nbins int, factor float64, workers int) (Scores, error) {
	wells := make([]string, 0, len(gh.Wells))
	for well := range gh.Wells {
		wells = append(wells, well)
	}
	sort.Slice(wells, func(i, j int) bool { return plate.Less(wells[i], wells[j]) })

	out := make(Scores, len(wells))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for _, feature := range features {
		feature := feature
		ctrl, ok := gh.Control[feature]
		if !ok {
			continue
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			scored, vectors := featureVectors(gh, wells, feature)
			if len(vectors) == 0 {
				return nil
			}

			if ctrl.NBins() != nbins {
				return fmt.Errorf("feature %q: %w: control has %d bins, expected %d", feature, hist.ErrShapeMismatch, ctrl.NBins(), nbins)
			}

			values, err := hist.SquareDiff(vectors, ctrl.Counts(), factor)
			if err != nil {
				return fmt.Errorf("feature %q: %w", feature, err)
			}

			mu.Lock()
			defer mu.Unlock()
			for i, well := range scored {
				if out[well] == nil {
					out[well] = make(map[string]float64)
				}
				out[well][feature] = values[i]
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// featureVectors collects, in the order of wells, the normalized counts of
// every well that has a histogram for feature.
func featureVectors(gh *GroupHistograms, wells []string, feature string) ([]string, [][]float64) {
	var scored []string
	var vectors [][]float64
	for _, well := range wells {
		h, ok := gh.Wells[well][feature]
		if !ok {
			continue
		}
		scored = append(scored, well)
		vectors = append(vectors, h.Counts())
	}

	return scored, vectors
}
