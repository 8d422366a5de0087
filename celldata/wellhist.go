package celldata

import (
	"fmt"
	"sync"

	"github.com/carbocation/histdiff/hist"
)

// WellHistograms is the concurrent well -> feature -> histogram map filled by
// the accumulation pass. Wells and their histograms are created lazily on
// first touch; creation at both levels is first-writer-wins, and fills of one
// histogram are serialized by that histogram's own lock.
type WellHistograms struct {
	nbins  int
	ranges map[string]Range

	m     sync.RWMutex
	wells map[string]*wellEntry
}

type wellEntry struct {
	m        sync.RWMutex
	features map[string]*histEntry
}

type histEntry struct {
	m sync.Mutex
	h *hist.Hist
}

// NewWellHistograms prepares an empty map whose histograms will have nbins
// bins over the given per-feature ranges.
func NewWellHistograms(nbins int, ranges map[string]Range) *WellHistograms {
	return &WellHistograms{
		nbins:  nbins,
		ranges: ranges,
		wells:  make(map[string]*wellEntry),
	}
}

// well returns the entry for a well, creating it if needed. Lock upgrading is
// racy, so existence is checked again once the write lock is held.
func (w *WellHistograms) well(id string) *wellEntry {
	w.m.RLock()
	entry, exists := w.wells[id]
	w.m.RUnlock()
	if exists {
		return entry
	}

	w.m.Lock()
	defer w.m.Unlock()

	if entry, exists = w.wells[id]; exists {
		return entry
	}
	entry = &wellEntry{features: make(map[string]*histEntry)}
	w.wells[id] = entry

	return entry
}

func (w *WellHistograms) histogram(entry *wellEntry, feature string) (*histEntry, error) {
	entry.m.RLock()
	he, exists := entry.features[feature]
	entry.m.RUnlock()
	if exists {
		return he, nil
	}

	rng, ok := w.ranges[feature]
	if !ok {
		return nil, fmt.Errorf("no range was computed for feature %q", feature)
	}

	entry.m.Lock()
	defer entry.m.Unlock()

	if he, exists = entry.features[feature]; exists {
		return he, nil
	}
	he = &histEntry{h: hist.New(w.nbins, rng.Low, rng.High)}
	entry.features[feature] = he

	return he, nil
}

// Fill deposits one value into the histogram of (well, feature).
func (w *WellHistograms) Fill(well, feature string, value float64) error {
	he, err := w.histogram(w.well(well), feature)
	if err != nil {
		return err
	}

	he.m.Lock()
	he.h.Fill(value)
	he.m.Unlock()

	return nil
}

// FillRow deposits one cell's values, features[i] receiving values[i].
func (w *WellHistograms) FillRow(well string, features []string, values []float64) error {
	entry := w.well(well)
	for i, feature := range features {
		he, err := w.histogram(entry, feature)
		if err != nil {
			return err
		}

		he.m.Lock()
		he.h.Fill(values[i])
		he.m.Unlock()
	}

	return nil
}

// Len is the number of wells seen so far.
func (w *WellHistograms) Len() int {
	w.m.RLock()
	defer w.m.RUnlock()

	return len(w.wells)
}

// Snapshot copies the current histograms into plain maps that are safe to
// read without locks.
func (w *WellHistograms) Snapshot() map[string]map[string]*hist.Hist {
	w.m.RLock()
	defer w.m.RUnlock()

	out := make(map[string]map[string]*hist.Hist, len(w.wells))
	for id, entry := range w.wells {
		entry.m.RLock()
		features := make(map[string]*hist.Hist, len(entry.features))
		for name, he := range entry.features {
			he.m.Lock()
			features[name] = he.h.Clone()
			he.m.Unlock()
		}
		entry.m.RUnlock()

		out[id] = features
	}

	return out
}
