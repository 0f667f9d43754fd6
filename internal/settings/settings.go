package settings

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

// CurrentVersion is the schema written by Save.
const CurrentVersion = 3

// Entry is one name/value pair in a limits list.
type Entry struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// File is the on-disk settings document.
type File struct {
	Version   int     `yaml:"version"`
	SaveCount int     `yaml:"save_count"`
	ButtonX   int     `yaml:"button_x"`
	ButtonY   int     `yaml:"button_y"`
	MinLimit  float64 `yaml:"min_limit"`
	MaxLimit  float64 `yaml:"max_limit"`

	Limits         []Entry `yaml:"limits"`
	GenericLimits  []Entry `yaml:"generic_limits"`
	OriginalLimits []Entry `yaml:"original_limits"`
	IgnoredLimits  []Entry `yaml:"ignored_limits"`
}

// Decode parses a settings document and migrates it to CurrentVersion.
func Decode(data []byte) (limits.Snapshot, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return limits.Snapshot{}, fmt.Errorf("parse settings: %w", err)
	}
	Migrate(&f)
	return f.Snapshot(), nil
}

// Encode renders snap as a CurrentVersion document with entries sorted by name.
func Encode(snap limits.Snapshot) ([]byte, error) {
	f := FromSnapshot(snap)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return buf.Bytes(), nil
}

func (f File) Snapshot() limits.Snapshot {
	return limits.Snapshot{
		SaveCount: f.SaveCount,
		ButtonX:   f.ButtonX,
		ButtonY:   f.ButtonY,
		MinLimit:  f.MinLimit,
		MaxLimit:  f.MaxLimit,
		Explicit:  toMap(f.Limits),
		Generic:   toMap(f.GenericLimits),
		Original:  toMap(f.OriginalLimits),
		Ignored:   toMap(f.IgnoredLimits),
	}
}

func FromSnapshot(s limits.Snapshot) File {
	return File{
		Version:        CurrentVersion,
		SaveCount:      s.SaveCount,
		ButtonX:        s.ButtonX,
		ButtonY:        s.ButtonY,
		MinLimit:       s.MinLimit,
		MaxLimit:       s.MaxLimit,
		Limits:         toEntries(s.Explicit),
		GenericLimits:  toEntries(s.Generic),
		OriginalLimits: toEntries(s.Original),
		IgnoredLimits:  toEntries(s.Ignored),
	}
}

// toMap keeps the first occurrence of a duplicated name.
func toMap(entries []Entry) map[string]float64 {
	m := make(map[string]float64, len(entries))
	for _, e := range entries {
		if _, dup := m[e.Name]; !dup {
			m[e.Name] = e.Value
		}
	}
	return m
}

func toEntries(m map[string]float64) []Entry {
	out := make([]Entry, 0, len(m))
	for k, v := range m {
		out = append(out, Entry{Name: k, Value: v})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Store reads and writes the settings file at one path. It implements limits.Persister.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the settings file. A missing file is not an error. On any other failure
// the empty default is returned together with the error, so callers can log and go on.
func (s *Store) Load() (limits.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return limits.Snapshot{}, nil
	}
	if err != nil {
		return limits.Snapshot{}, fmt.Errorf("read settings: %w", err)
	}
	snap, err := Decode(data)
	if err != nil {
		return limits.Snapshot{}, err
	}
	telemetry.Debugf("settings: loaded %s (%d explicit, %d original)", s.path, len(snap.Explicit), len(snap.Original))
	return snap, nil
}

// Save writes snap atomically: a temp file in the same directory renamed over the target.
func (s *Store) Save(snap limits.Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
