// Package history persists every round's raw client vectors, one file per
// round, for consumption by the history-aware detector and by offline
// forensic tooling.
package history

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/rampart-fl/rampart/experiment"
	"github.com/rampart-fl/rampart/pkg/errors"
	"github.com/rampart-fl/rampart/pkg/vector"
)

type entry struct {
	Record experiment.RoundRecord `cbor:"record"`
	Coords []int                  `cbor:"coords,omitempty"`
}

// Store is the append-only per-round log of one run. The orchestrator owns
// writes; strategies only read. A positive sample width persists only that
// many coordinates per vector; the coordinate subsample is drawn once, from
// the store's own seed, and reused for the whole run.
type Store struct {
	dir         string
	sampleWidth int
	rng         *rand.Rand
	coords      []int
	mu          sync.RWMutex
}

// New opens a store rooted at dir, creating it if needed. One Store instance
// serves exactly one run.
func New(dir string, sampleWidth int, seed int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	return &Store{
		dir:         dir,
		sampleWidth: sampleWidth,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Reset removes every recorded round. A fresh run calls it before round 0
// so no prior run's history leaks in.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read history directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		var round int
		if _, err := fmt.Sscanf(f.Name(), "round_%d.cbor", &round); err != nil {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, f.Name())); err != nil {
			return fmt.Errorf("failed to remove round file: %w", err)
		}
	}

	return nil
}

// Append records one finished round. A round index can be recorded only
// once; the record is never mutated afterward.
func (s *Store) Append(rec experiment.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Round < 0 {
		return fmt.Errorf("%w: negative round index", errors.ErrInvalidData)
	}
	file := s.path(rec.Round)
	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("%w: round %d already recorded", errors.ErrEntityExists, rec.Round)
	}

	if len(rec.Updates) > 0 {
		s.ensureCoords(len(rec.Updates[0].Vector))
	}

	stored := rec
	stored.Updates = make([]experiment.Update, len(rec.Updates))
	for i, u := range rec.Updates {
		u.Vector = s.project(u.Vector)
		stored.Updates[i] = u
	}
	stored.Aggregated = s.project(rec.Aggregated)

	data, err := cbor.Marshal(entry{Record: stored, Coords: s.coords})
	if err != nil {
		return fmt.Errorf("failed to marshal round record: %w", err)
	}
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("failed to write round file: %w", err)
	}

	return nil
}

// Load reads one recorded round. Vectors come back in the store's coordinate
// space when sampling is configured.
func (s *Store) Load(round int) (experiment.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(round))
	if err != nil {
		if os.IsNotExist(err) {
			return experiment.RoundRecord{}, fmt.Errorf("%w: round %d", errors.ErrNotFound, round)
		}

		return experiment.RoundRecord{}, fmt.Errorf("failed to read round file: %w", err)
	}

	var e entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return experiment.RoundRecord{}, fmt.Errorf("failed to unmarshal round record: %w", err)
	}

	return e.Record, nil
}

// Window returns up to n rounds of per-client vectors for rounds strictly
// before the given one, oldest first.
func (s *Store) Window(round, n int) ([][]vector.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := round - n
	if start < 0 {
		start = 0
	}

	out := make([][]vector.Vector, 0, n)
	for r := start; r < round; r++ {
		data, err := os.ReadFile(s.path(r))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("failed to read round file: %w", err)
		}

		var e entry
		if err := cbor.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round record: %w", err)
		}

		clients := make([]vector.Vector, len(e.Record.Updates))
		for i, u := range e.Record.Updates {
			clients[i] = u.Vector
		}
		out = append(out, clients)
	}

	return out, nil
}

// Rounds lists the recorded round indices in ascending order.
func (s *Store) Rounds() ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	var rounds []int
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		var round int
		if _, err := fmt.Sscanf(f.Name(), "round_%d.cbor", &round); err == nil {
			rounds = append(rounds, round)
		}
	}
	sort.Ints(rounds)

	return rounds, nil
}

// Project maps a full-length vector into the store's coordinate space.
// Without sampling, or before the subsample has been drawn, the input is
// returned unchanged.
func (s *Store) Project(v vector.Vector) vector.Vector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.project(v)
}

func (s *Store) path(round int) string {
	return filepath.Join(s.dir, fmt.Sprintf("round_%d.cbor", round))
}

func (s *Store) ensureCoords(length int) {
	if s.sampleWidth <= 0 || s.coords != nil || length <= s.sampleWidth {
		return
	}

	s.coords = make([]int, s.sampleWidth)
	for i := range s.coords {
		s.coords[i] = s.rng.Intn(length)
	}
}

func (s *Store) project(v vector.Vector) vector.Vector {
	if s.coords == nil {
		return v
	}
	for _, c := range s.coords {
		if c >= len(v) {
			return v
		}
	}

	out := make(vector.Vector, len(s.coords))
	for j, c := range s.coords {
		out[j] = v[c]
	}

	return out
}
