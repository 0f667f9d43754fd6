package limits

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/charleschow/slope-limits/internal/core/catalog"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

// Source says which table answered a GetLimit call.
type Source string

const (
	SourceNone      Source = ""
	SourceName      Source = "name"
	SourceGeneric   Source = "generic"
	SourceSubstring Source = "substring"
)

const (
	DefaultMinLimit = 0.01
	DefaultMaxLimit = 1.0
)

var (
	ErrNonFinite   = errors.New("limit is not a finite number")
	ErrIgnoredName = errors.New("name is excluded from limit management")
	ErrUnknownName = errors.New("name is neither tracked nor a known category")

	// ErrUnsupportedName is a catalog category whose feature or mod is absent.
	// It matches ErrUnknownName under errors.Is.
	ErrUnsupportedName = fmt.Errorf("%w: category not available with current content", ErrUnknownName)
)

// Snapshot is the persisted form of a Store.
type Snapshot struct {
	SaveCount int
	ButtonX   int
	ButtonY   int
	MinLimit  float64
	MaxLimit  float64
	Explicit  map[string]float64
	Generic   map[string]float64
	Original  map[string]float64
	Ignored   map[string]float64
}

// Persister writes snapshots somewhere durable.
type Persister interface {
	Save(Snapshot) error
}

// Store holds every known limit keyed by canonical name (explicit, original, ignored)
// or by lowercase match key (generic).
type Store struct {
	mu  sync.RWMutex
	cat *catalog.Catalog
	out Persister

	explicit map[string]float64
	generic  map[string]float64
	original map[string]float64
	ignored  map[string]float64

	// generic keys, longest first, for substring matching
	genericKeys []string

	minLimit  float64
	maxLimit  float64
	buttonX   int
	buttonY   int
	saveCount int
	bulk      bool
}

// New returns an empty store. A nil persister keeps everything in memory.
func New(cat *catalog.Catalog, out Persister) *Store {
	return FromSnapshot(cat, out, Snapshot{})
}

// FromSnapshot builds a store from previously saved state. Non-finite values are dropped.
func FromSnapshot(cat *catalog.Catalog, out Persister, snap Snapshot) *Store {
	s := &Store{
		cat:       cat,
		out:       out,
		explicit:  finiteCopy(snap.Explicit),
		generic:   finiteCopy(snap.Generic),
		original:  finiteCopy(snap.Original),
		ignored:   finiteCopy(snap.Ignored),
		minLimit:  snap.MinLimit,
		maxLimit:  snap.MaxLimit,
		buttonX:   snap.ButtonX,
		buttonY:   snap.ButtonY,
		saveCount: snap.SaveCount,
	}
	if !finite(s.minLimit) || s.minLimit <= 0 {
		s.minLimit = DefaultMinLimit
	}
	if !finite(s.maxLimit) || s.maxLimit < s.minLimit {
		s.maxLimit = DefaultMaxLimit
	}
	// An ignored name never keeps an explicit limit.
	for name := range s.ignored {
		delete(s.explicit, name)
	}
	s.sortGenericKeys()
	return s
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteCopy(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if k != "" && finite(v) {
			out[k] = v
		}
	}
	return out
}

func (s *Store) sortGenericKeys() {
	keys := slices.Collect(maps.Keys(s.generic))
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	s.genericKeys = keys
}

// RecordOriginal stores the value observed in live data before any change. The first
// observation wins.
func (s *Store) RecordOriginal(name string, value float64) bool {
	if name == "" || !finite(value) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.original[name]; ok {
		return false
	}
	s.original[name] = value
	telemetry.Metrics.TrackedNames.Set(int64(len(s.original)))
	return true
}

// RecordIgnored notes an excluded name and its observed value. Any explicit entry
// for the name is dropped.
func (s *Store) RecordIgnored(name string, value float64) bool {
	if name == "" || !finite(value) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.explicit, name)
	if _, ok := s.ignored[name]; ok {
		return false
	}
	s.ignored[name] = value
	return true
}

// SeedExplicit adds an explicit entry when none exists. Used during discovery, where
// the caller already vetted the name.
func (s *Store) SeedExplicit(name string, value float64) bool {
	if name == "" || !finite(value) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ignored[name]; ok {
		return false
	}
	if _, ok := s.explicit[name]; ok {
		return false
	}
	s.explicit[name] = value
	return true
}

// IsIgnored reports whether name was recorded as excluded.
func (s *Store) IsIgnored(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ignored[name]
	return ok
}

// GetLimit resolves the configured limit for name: an explicit entry, else a generic
// entry keyed by the lowercase name, else the longest generic key contained in the
// lowercase name.
func (s *Store) GetLimit(name string) (float64, Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.explicit[name]; ok && finite(v) {
		return v, SourceName, true
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return 0, SourceNone, false
	}
	if v, ok := s.generic[lower]; ok && finite(v) {
		return v, SourceGeneric, true
	}
	for _, key := range s.genericKeys {
		if key == "" || !strings.Contains(lower, key) {
			continue
		}
		if v := s.generic[key]; finite(v) {
			return v, SourceSubstring, true
		}
	}
	return 0, SourceNone, false
}

// Edit describes the outcome of an accepted SetLimit call.
type Edit struct {
	Name     string // canonical key the value was stored under
	Value    float64
	Previous *float64 // nil when the name had no explicit entry
	Changed  bool
}

// SetLimit records a user edit. The value is clamped to the name's slider range.
// Names that are neither tracked nor a catalog category are rejected.
func (s *Store) SetLimit(name string, value float64) (bool, error) {
	e, err := s.Edit(name, value)
	return e.Changed, err
}

// Edit is SetLimit reporting the stored key and previous value.
func (s *Store) Edit(name string, value float64) (Edit, error) {
	if !finite(value) {
		telemetry.Metrics.RejectedEdits.Inc()
		return Edit{}, fmt.Errorf("set limit %q: %w", name, ErrNonFinite)
	}
	name = strings.TrimSpace(name)

	s.mu.Lock()
	key, err := s.editKey(name)
	if err != nil {
		s.mu.Unlock()
		telemetry.Metrics.RejectedEdits.Inc()
		return Edit{}, fmt.Errorf("set limit %q: %w", name, err)
	}
	value = min(max(value, s.minLimit), s.maxForLocked(key))

	e := Edit{Name: key, Value: value}
	if old, had := s.explicit[key]; had {
		e.Previous = &old
		e.Changed = old != value
	} else {
		e.Changed = true
	}
	s.explicit[key] = value
	lower := strings.ToLower(key)
	if _, ok := s.generic[lower]; ok {
		s.generic[lower] = value
	}
	s.mu.Unlock()

	if e.Changed {
		s.Save()
	}
	return e, nil
}

func (s *Store) editKey(name string) (string, error) {
	if name == "" {
		return "", ErrUnknownName
	}
	if _, ok := s.ignored[name]; ok {
		return "", ErrIgnoredName
	}
	if s.cat != nil && s.cat.IsIgnored("", name) {
		return "", ErrIgnoredName
	}
	if _, ok := s.explicit[name]; ok {
		return name, nil
	}
	if _, ok := s.original[name]; ok {
		return name, nil
	}
	if s.cat == nil {
		return "", ErrUnknownName
	}
	cat, ok := s.cat.Lookup(name)
	if !ok {
		return "", ErrUnknownName
	}
	if !s.cat.Supported(cat) {
		return "", ErrUnsupportedName
	}
	if strings.EqualFold(cat.Name, name) {
		return cat.Name, nil
	}
	// Tunnel form of a known category: keep the caller's spelling of the suffix.
	return name, nil
}

// RebuildGenerics backfills the generic table from explicit entries and the catalog.
func (s *Store) RebuildGenerics() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	names := slices.Sorted(maps.Keys(s.explicit))
	for _, name := range names {
		lower := strings.ToLower(name)
		if _, ok := s.generic[lower]; !ok {
			s.generic[lower] = s.explicit[name]
			changed = true
		}
	}

	if s.cat != nil {
		for _, cat := range s.cat.All() {
			part := cat.MatchPart
			if part == "" {
				continue
			}
			if _, ok := s.generic[part]; ok {
				continue
			}
			if v, ok := s.explicit[cat.Name]; ok {
				s.generic[part] = v
				changed = true
				continue
			}
			if v, ok := s.generic[strings.ToLower(cat.Name)]; ok {
				s.generic[part] = v
				changed = true
				continue
			}
			for _, name := range names {
				if strings.Contains(strings.ToLower(name), part) {
					s.generic[part] = s.explicit[name]
					changed = true
					break
				}
			}
		}
	}

	if changed {
		s.sortGenericKeys()
	}
	return changed
}

// BeginBulk suppresses saves until EndBulk.
func (s *Store) BeginBulk() {
	s.mu.Lock()
	s.bulk = true
	s.mu.Unlock()
}

func (s *Store) EndBulk() {
	s.mu.Lock()
	s.bulk = false
	s.mu.Unlock()
}

// Save hands the current state to the persister. Failures are logged, never returned.
func (s *Store) Save() {
	s.mu.Lock()
	if s.bulk || s.out == nil {
		s.mu.Unlock()
		return
	}
	s.saveCount++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.out.Save(snap); err != nil {
		telemetry.Metrics.SaveErrors.Inc()
		telemetry.Errorf("limits: save failed: %v", err)
		return
	}
	telemetry.Metrics.Saves.Inc()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		SaveCount: s.saveCount,
		ButtonX:   s.buttonX,
		ButtonY:   s.buttonY,
		MinLimit:  s.minLimit,
		MaxLimit:  s.maxLimit,
		Explicit:  maps.Clone(s.explicit),
		Generic:   maps.Clone(s.generic),
		Original:  maps.Clone(s.original),
		Ignored:   maps.Clone(s.ignored),
	}
}

func (s *Store) Original(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.original[name]
	return v, ok
}

func (s *Store) Explicit(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.explicit[name]
	return v, ok
}

func (s *Store) OriginalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.original)
}

// Bounds returns the global slider range.
func (s *Store) Bounds() (lo, hi float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minLimit, s.maxLimit
}

// MaxFor returns the slider ceiling for name, honouring a category override.
func (s *Store) MaxFor(name string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxForLocked(name)
}

func (s *Store) maxForLocked(name string) float64 {
	if s.cat != nil {
		if cat, ok := s.cat.Lookup(name); ok && cat.HasMaxLimit() {
			return cat.MaxLimit
		}
	}
	return s.maxLimit
}
