package catalog

import "math"

// DependencyKind says what a Dependency refers to.
type DependencyKind int

const (
	DependNone DependencyKind = iota
	DependFeature
	DependMod
)

// Dependency is a content feature or another mod that must be present for a
// category to be offered.
type Dependency struct {
	Kind DependencyKind
	ID   string
}

func Feature(id string) Dependency { return Dependency{Kind: DependFeature, ID: id} }
func Mod(id string) Dependency     { return Dependency{Kind: DependMod, ID: id} }

func (d Dependency) IsZero() bool { return d.Kind == DependNone }

// Probe answers whether a dependency is fulfilled in the running game.
type Probe interface {
	Fulfilled(dep Dependency) bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(Dependency) bool

func (f ProbeFunc) Fulfilled(dep Dependency) bool { return f(dep) }

// StaticProbe reports every listed feature or mod id as present.
func StaticProbe(ids ...string) Probe {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return ProbeFunc(func(dep Dependency) bool { return set[dep.ID] })
}

const (
	// unorderedOffset pushes categories without an explicit order behind all ordered ones.
	unorderedOffset = 100_000
	syntheticRank   = math.MaxInt32
)

// Category is a canonical network type. Values are immutable; use the With* methods
// to derive changed copies.
type Category struct {
	Name       string
	MatchPart  string // lowercase substring used for fuzzy matching
	Dependency Dependency
	Group      string
	IsVariant  bool    // reached only through another category's tunnel/bridge suffix
	MaxLimit   float64 // zero means the global maximum applies

	order     int
	ordered   bool
	index     int
	synthetic bool
}

// WithOrder returns a copy with an explicit sort order.
func (c Category) WithOrder(order int) Category {
	c.order = order
	c.ordered = true
	return c
}

// WithName returns a copy carrying a different canonical name.
func (c Category) WithName(name string) Category {
	c.Name = name
	return c
}

// Order returns the explicit order and whether one was set.
func (c Category) Order() (int, bool) { return c.order, c.ordered }

// SortRank orders categories: explicit orders first, then unordered ones in
// declaration order, then synthetic categories last.
func (c Category) SortRank() int {
	switch {
	case c.synthetic:
		return syntheticRank
	case c.ordered:
		return c.order
	default:
		return unorderedOffset + c.index
	}
}

// Synthetic reports whether the category was made up for a name the catalog does not know.
func (c Category) Synthetic() bool { return c.synthetic }

// HasMaxLimit reports whether the category overrides the global maximum.
func (c Category) HasMaxLimit() bool { return c.MaxLimit > 0 }
