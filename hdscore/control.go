// Package hdscore turns per-well histograms into HistDiff scores: it pools the
// control wells of each group, prepares every histogram for comparison and
// scores each well against the pooled control.
package hdscore

import (
	"fmt"

	"github.com/carbocation/histdiff/hist"
	"github.com/carbocation/histdiff/plate"
)

// ControlLabel is how the pooled control appears in diagnostics. It is never
// used as a key next to real wells.
const ControlLabel = "CNTRL"

// DefaultAlpha is the smoothing strength applied before normalization.
const DefaultAlpha = 0.25

// GroupHistograms holds the histograms of one group, ready to be scored.
type GroupHistograms struct {
	Group plate.Group

	// Wells maps each member well with data to its feature histograms.
	Wells map[string]map[string]*hist.Hist

	// Control maps each feature to the pooled control histogram.
	Control map[string]*hist.Hist

	// ControlWells lists the control wells that belong to the group and have
	// data.
	ControlWells []string

	// MissingControl lists, in feature order, the features for which no
	// control well in the group has a histogram.
	MissingControl []string
}

// ControlHistograms pools, per feature, the histograms of the control wells
// that are members of group. Each well contributes once, however often it is
// listed in controls. Features without any contributing control are returned
// in missing. The snapshot is not modified.
func ControlHistograms(group plate.Group, snapshot map[string]map[string]*hist.Hist, controls, features []string) (pooled map[string]*hist.Hist, missing []string, err error) {
	members := group.Members()
	pooled = make(map[string]*hist.Hist, len(features))
	controls = uniqueWells(controls)

	for _, feature := range features {
		var sum *hist.Hist
		for _, c := range controls {
			if _, ok := members[c]; !ok {
				continue
			}

			h, ok := snapshot[c][feature]
			if !ok {
				continue
			}

			if sum == nil {
				sum = h.Clone()
				continue
			}
			if err := sum.Add(h); err != nil {
				return nil, nil, fmt.Errorf("pooling control %s for %s: %w", c, feature, err)
			}
		}

		if sum == nil {
			missing = append(missing, feature)
			continue
		}
		pooled[feature] = sum
	}

	return pooled, missing, nil
}

// PrepareGroup selects the group's wells from snapshot, pools its controls and
// then smooths and normalizes every histogram. The snapshot is not modified.
func PrepareGroup(group plate.Group, snapshot map[string]map[string]*hist.Hist, controls, features []string, alpha float64) (*GroupHistograms, error) {
	control, missing, err := ControlHistograms(group, snapshot, controls, features)
	if err != nil {
		return nil, err
	}

	gh := &GroupHistograms{
		Group:          group,
		Wells:          make(map[string]map[string]*hist.Hist),
		Control:        control,
		MissingControl: missing,
	}

	isControl := make(map[string]struct{}, len(controls))
	for _, c := range controls {
		isControl[c] = struct{}{}
	}

	for _, well := range group.Wells {
		data, ok := snapshot[well]
		if !ok {
			continue
		}
		if _, ok := isControl[well]; ok {
			gh.ControlWells = append(gh.ControlWells, well)
		}

		prepared := make(map[string]*hist.Hist, len(features))
		for _, feature := range features {
			h, ok := data[feature]
			if !ok {
				continue
			}
			h = h.Clone()
			h.Smooth(alpha)
			h.Normalize()
			prepared[feature] = h
		}
		gh.Wells[well] = prepared
	}

	for _, h := range gh.Control {
		h.Smooth(alpha)
		h.Normalize()
	}

	return gh, nil
}

func uniqueWells(wells []string) []string {
	seen := make(map[string]struct{}, len(wells))
	out := make([]string, 0, len(wells))
	for _, w := range wells {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	return out
}
