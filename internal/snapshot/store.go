// Package snapshot owns the process-wide latest-price state: a single-writer
// store with atomic publish, trend computation against the previous cycle,
// and file persistence used as the handoff to the reader processes.
package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"pricepulse-bot/internal/types"
)

// Trend is the direction of an asset's price relative to the previous
// snapshot.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendFlat    Trend = "FLAT"
	TrendUnknown Trend = "UNKNOWN"
)

// Store holds the current snapshot plus the previous cycle's numeric values.
// One goroutine publishes; any number read.
type Store struct {
	mu       sync.RWMutex
	current  types.Snapshot
	previous map[types.Asset]float64
	path     string
}

// NewStore creates a store. With a non-empty path every publish is also
// serialized to that file; an empty path keeps the store memory-only (used by
// reader processes that feed it from the file instead).
func NewStore(path string) *Store {
	return &Store{
		current:  types.Snapshot{},
		previous: make(map[types.Asset]float64),
		path:     path,
	}
}

// Publish replaces the current snapshot atomically, retaining the numeric
// values of the snapshot being replaced for trend computation. A persistence
// failure leaves the in-memory snapshot in place and is returned for logging;
// the next publish retries.
func (s *Store) Publish(snap types.Snapshot) error {
	s.mu.Lock()
	for asset, obs := range s.current {
		if obs.PriceNum != nil {
			s.previous[asset] = *obs.PriceNum
		}
	}
	s.current = snap
	s.mu.Unlock()

	if s.path == "" {
		return nil
	}
	return writeFile(s.path, snap)
}

// Read returns the current snapshot. The returned map is a copy; readers see
// either a whole old snapshot or a whole new one, never a mix.
func (s *Store) Read() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(types.Snapshot, len(s.current))
	for asset, obs := range s.current {
		out[asset] = obs
	}
	return out
}

// Trend compares a current numeric value against the retained previous value
// for the asset. Unknown until a previous value exists.
func (s *Store) Trend(asset types.Asset, current float64) Trend {
	s.mu.RLock()
	prev, ok := s.previous[asset]
	s.mu.RUnlock()

	if !ok {
		return TrendUnknown
	}
	switch {
	case current > prev:
		return TrendUp
	case current < prev:
		return TrendDown
	default:
		return TrendFlat
	}
}

// writeFile serializes the snapshot to a temp file and renames it into place
// so a concurrent reader never observes a truncated document.
func writeFile(path string, snap types.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return errors.Wrap(err, "could not marshal snapshot")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "could not create snapshot directory")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(err, "could not write snapshot temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "could not move snapshot into place")
	}
	return nil
}

// LoadFile reads a persisted snapshot. A missing file yields an empty
// snapshot, not an error; a malformed one is an error so callers can keep
// their last good copy.
func LoadFile(path string) (types.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Snapshot{}, nil
		}
		return nil, errors.Wrap(err, "could not read snapshot file")
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrap(err, "could not parse snapshot file")
	}
	return snap, nil
}
