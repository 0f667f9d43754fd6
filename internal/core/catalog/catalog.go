package catalog

import (
	"regexp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/charleschow/slope-limits/internal/core/naming"
)

// Catalog is the immutable registry of canonical categories, their groups,
// fallback chains and ignore rules. Build it once at startup and share it.
type Catalog struct {
	categories []Category // declaration order, variants included
	byName     map[string]int
	fallbacks  map[string]string
	renames    map[string]string

	groups        []groupDef
	groupPrefixes []groupPrefix

	ignoredNames       []*regexp.Regexp
	ignoredCollections []*regexp.Regexp

	probe Probe
}

// New builds the default catalog. A nil probe treats every dependency as unfulfilled.
func New(probe Probe) *Catalog {
	if probe == nil {
		probe = ProbeFunc(func(Dependency) bool { return false })
	}
	c := &Catalog{
		byName:             make(map[string]int),
		fallbacks:          defaultFallbacks,
		renames:            defaultRenames,
		groups:             defaultGroups,
		groupPrefixes:      defaultGroupPrefixes,
		ignoredNames:       defaultIgnoredNames,
		ignoredCollections: defaultIgnoredCollections,
		probe:              probe,
	}
	for i, cat := range defaultCategories() {
		cat.index = i
		c.categories = append(c.categories, cat)
		c.byName[strings.ToLower(cat.Name)] = i
	}
	return c
}

// All returns every category, variants included, in declaration order.
func (c *Catalog) All() []Category {
	return slices.Clone(c.categories)
}

// Generics returns the non-variant categories sorted by rank.
func (c *Catalog) Generics() []Category {
	out := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if !cat.IsVariant {
			out = append(out, cat)
		}
	}
	slices.SortStableFunc(out, func(a, b Category) int { return a.SortRank() - b.SortRank() })
	return out
}

// SupportedGenerics returns the generics whose dependency is fulfilled.
func (c *Catalog) SupportedGenerics() []Category {
	var out []Category
	for _, cat := range c.Generics() {
		if c.Supported(cat) {
			out = append(out, cat)
		}
	}
	return out
}

// Supported reports whether cat can be offered to the user.
func (c *Catalog) Supported(cat Category) bool {
	if cat.synthetic {
		return false
	}
	return cat.Dependency.IsZero() || c.probe.Fulfilled(cat.Dependency)
}

// Lookup finds a category by exact canonical name, ignoring case. A trailing
// tunnel marker is stripped when the full name is not itself a category.
func (c *Catalog) Lookup(name string) (Category, bool) {
	if i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c.categories[i], true
	}
	if base, tunnel := naming.StripTunnel(strings.TrimSpace(name)); tunnel {
		if i, ok := c.byName[strings.ToLower(base)]; ok {
			return c.categories[i], true
		}
	}
	return Category{}, false
}

// FallbackName returns the canonical name that name borrows its settings from.
// Tunnel and bridge variants fall back to the matching variant of the parent.
func (c *Catalog) FallbackName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if fb, ok := c.fallbacks[strings.ToLower(name)]; ok {
		return fb, true
	}
	base, suffix := naming.SplitVariant(name)
	if suffix == "" {
		return "", false
	}
	if fb, ok := c.fallbacks[strings.ToLower(base)]; ok {
		return fb + suffix, true
	}
	return "", false
}

// Group returns the editor group for name.
func (c *Catalog) Group(name string) string {
	if g, ok := c.groupByPrefix(name); ok {
		return g
	}
	if fb, ok := c.FallbackName(name); ok {
		if g, ok := c.groupByPrefix(fb); ok {
			return g
		}
	}
	return c.lastGroup()
}

func (c *Catalog) groupByPrefix(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, gp := range c.groupPrefixes {
		if strings.HasPrefix(lower, gp.prefix) {
			return gp.group, true
		}
	}
	return "", false
}

func (c *Catalog) lastGroup() string {
	last := c.groups[0]
	for _, g := range c.groups[1:] {
		if g.Order > last.Order {
			last = g
		}
	}
	return last.Name
}

// GroupOrder returns the sort order of a group label; unknown labels sort last.
func (c *Catalog) GroupOrder(group string) int {
	for _, g := range c.groups {
		if g.Name == group {
			return g.Order
		}
	}
	return syntheticRank
}

// Category resolves name to the category that governs it. Rules are tried in order
// and each rule scans categories in declaration order:
//
//	exact name, exact fallback, name contains category name, fallback contains
//	category name, name contains match part, fallback contains match part.
//
// Names that match nothing get a synthetic category that only carries a group.
func (c *Catalog) Category(name string) Category {
	if cat, ok := c.Lookup(name); ok {
		return cat
	}
	fb, hasFallback := c.FallbackName(name)
	if hasFallback {
		if cat, ok := c.Lookup(fb); ok {
			return cat
		}
	}

	lower := strings.ToLower(name)
	lowerFallback := strings.ToLower(fb)
	containsName := func(s string) func(Category) bool {
		return func(cat Category) bool { return strings.Contains(s, strings.ToLower(cat.Name)) }
	}
	containsPart := func(s string) func(Category) bool {
		return func(cat Category) bool { return cat.MatchPart != "" && strings.Contains(s, cat.MatchPart) }
	}

	rules := []func(Category) bool{containsName(lower)}
	if hasFallback {
		rules = append(rules, containsName(lowerFallback))
	}
	rules = append(rules, containsPart(lower))
	if hasFallback {
		rules = append(rules, containsPart(lowerFallback))
	}
	for _, match := range rules {
		for _, cat := range c.categories {
			if match(cat) {
				return cat
			}
		}
	}

	return Category{Name: name, Group: c.Group(name), synthetic: true}
}

// DisplayName renders name for the editor, applying player-facing renames.
func (c *Catalog) DisplayName(name string) string {
	base, tunnel := naming.StripTunnel(strings.TrimSpace(name))
	suffix := ""
	if tunnel {
		suffix = naming.TunnelSuffix
	}
	if r, ok := c.renames[strings.ToLower(base)]; ok {
		return r + suffix
	}
	if i, ok := c.byName[strings.ToLower(base)]; ok {
		return c.categories[i].Name + suffix
	}
	return strings.TrimSpace(name)
}

// IsIgnored reports whether a network is excluded from limit management,
// either by its collection or by its canonical name.
func (c *Catalog) IsIgnored(collection, name string) bool {
	for _, re := range c.ignoredCollections {
		if re.MatchString(collection) {
			return true
		}
	}
	for _, re := range c.ignoredNames {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Suggest returns the category name closest to name by edit distance, for
// pointing users at a valid name after a rejected edit.
func (c *Catalog) Suggest(name string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return "", false
	}
	best, bestDist := "", -1
	for _, cat := range c.categories {
		if cat.IsVariant {
			continue
		}
		d := levenshtein.ComputeDistance(lower, strings.ToLower(cat.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = cat.Name, d
		}
	}
	if bestDist > max(3, len(lower)/3) {
		return "", false
	}
	return best, true
}
