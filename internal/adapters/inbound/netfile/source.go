package netfile

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/charleschow/slope-limits/internal/core/resolver"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

// Definition is one network definition read from a snapshot file. It satisfies
// resolver.Network.
type Definition struct {
	Class     string  `yaml:"class"`
	Object    string  `yaml:"object"`
	Localized string  `yaml:"title,omitempty"`
	Limit     float64 `yaml:"slope_limit"`

	mu sync.Mutex
}

func (d *Definition) ClassName() string  { return d.Class }
func (d *Definition) ObjectName() string { return d.Object }
func (d *Definition) Title() string      { return d.Localized }

func (d *Definition) SlopeLimit() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Limit
}

func (d *Definition) SetSlopeLimit(v float64) {
	d.mu.Lock()
	d.Limit = v
	d.mu.Unlock()
}

type collection struct {
	Name     string        `yaml:"name"`
	Networks []*Definition `yaml:"networks"`
}

type document struct {
	Collections []collection `yaml:"collections"`
}

// Source serves network definitions from a YAML snapshot, standing in for the
// engine's live collections.
type Source struct {
	path string

	mu  sync.RWMutex
	doc document
}

// Load reads path. Reload re-reads the same path later.
func Load(path string) (*Source, error) {
	s := &Source{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse builds a source from YAML with no backing file.
func Parse(data []byte) (*Source, error) {
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	return &Source{doc: doc}, nil
}

func decode(data []byte) (document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse networks: %w", err)
	}
	for ci, c := range doc.Collections {
		kept := c.Networks[:0]
		for i, d := range c.Networks {
			if d == nil {
				telemetry.Warnf("networks: collection %q entry %d is empty, skipping", c.Name, i)
				continue
			}
			kept = append(kept, d)
		}
		doc.Collections[ci].Networks = kept
	}
	return doc, nil
}

// Reload replaces the definitions with the file's current content, the way the
// engine swaps collections after loading new content.
func (s *Source) Reload() error {
	if s.path == "" {
		return fmt.Errorf("reload networks: source has no file")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read networks: %w", err)
	}
	doc, err := decode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	telemetry.Infof("networks: loaded %s  collections=%d  definitions=%d", s.path, len(doc.Collections), countDefinitions(doc))
	return nil
}

func countDefinitions(doc document) int {
	n := 0
	for _, c := range doc.Collections {
		n += len(c.Networks)
	}
	return n
}

// Collections implements resolver.Source.
func (s *Source) Collections() ([]resolver.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]resolver.Collection, 0, len(s.doc.Collections))
	for _, c := range s.doc.Collections {
		nets := make([]resolver.Network, len(c.Networks))
		for i, d := range c.Networks {
			nets[i] = d
		}
		out = append(out, resolver.Collection{Name: c.Name, Networks: nets})
	}
	return out, nil
}

// Add appends a definition to a collection, creating the collection when needed.
func (s *Source) Add(collectionName string, d *Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Collections {
		if s.doc.Collections[i].Name == collectionName {
			s.doc.Collections[i].Networks = append(s.doc.Collections[i].Networks, d)
			return
		}
	}
	s.doc.Collections = append(s.doc.Collections, collection{Name: collectionName, Networks: []*Definition{d}})
}

// Encode renders the definitions with their current limits.
func (s *Source) Encode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Copy limits under each definition's lock before encoding.
	snap := document{Collections: make([]collection, len(s.doc.Collections))}
	for i, c := range s.doc.Collections {
		snap.Collections[i].Name = c.Name
		for _, d := range c.Networks {
			snap.Collections[i].Networks = append(snap.Collections[i].Networks, &Definition{
				Class: d.Class, Object: d.Object, Localized: d.Localized, Limit: d.SlopeLimit(),
			})
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&snap); err != nil {
		return nil, fmt.Errorf("encode networks: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode networks: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the definitions with their current limits to path.
func (s *Source) Save(path string) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write networks: %w", err)
	}
	return nil
}
