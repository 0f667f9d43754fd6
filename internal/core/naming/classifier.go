package naming

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/charleschow/slope-limits/internal/telemetry"
)

// Input identifies one network definition as the engine reports it.
type Input struct {
	Collection string
	Class      string
	Object     string
	Title      string
}

// Classified is the canonical name for one network definition.
type Classified struct {
	Name   string
	Tunnel bool
	Bridge bool
	Rule   string // table entry that produced Name; empty for pass-through
}

type cacheKey struct {
	class  string
	object string
}

// Classifier maps raw network identifiers to canonical names and memoizes the result
// per (class, object). Results never change for a key, so the cache is never evicted.
type Classifier struct {
	rules []Rule

	mu    sync.RWMutex
	cache map[cacheKey]Classified
	fill  singleflight.Group
}

func NewClassifier() *Classifier {
	return NewClassifierWithRules(DefaultRules())
}

func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{
		rules: rules,
		cache: make(map[cacheKey]Classified),
	}
}

// Name is the string form of Classify.
func (c *Classifier) Name(collection, class, object, title string) string {
	return c.Classify(Input{Collection: collection, Class: class, Object: object, Title: title}).Name
}

func (c *Classifier) Classify(in Input) Classified {
	telemetry.Metrics.Classifications.Inc()
	key := cacheKey{class: in.Class, object: in.Object}

	c.mu.RLock()
	res, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		telemetry.Metrics.ClassifierHits.Inc()
		return res
	}

	// NUL never appears in engine names, so the joined form is unambiguous.
	v, _, _ := c.fill.Do(in.Class+"\x00"+in.Object, func() (any, error) {
		res := Apply(c.rules, in)
		c.mu.Lock()
		c.cache[key] = res
		c.mu.Unlock()
		return res, nil
	})
	return v.(Classified)
}

// CacheLen returns the number of memoized keys.
func (c *Classifier) CacheLen() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Apply runs the rule table against in without caching.
func Apply(rules []Rule, in Input) Classified {
	class := strings.TrimSpace(in.Class)
	if class == "" {
		return Classified{Name: in.Class}
	}

	s := prepare(in, class)
	res := Classified{Name: s.Base, Tunnel: s.Tunnel, Bridge: s.Bridge}
	for _, r := range rules {
		if r.Match(s) {
			res.Name = r.Build(s)
			res.Rule = r.Name
			break
		}
	}
	if res.Rule == "" {
		telemetry.Metrics.PassThroughNames.Inc()
		telemetry.Debugf("naming: pass-through class=%q object=%q collection=%q", in.Class, in.Object, in.Collection)
	}

	if res.Tunnel && !ContainsFold(res.Name, "tunnel") {
		res.Name += TunnelSuffix
	}
	if res.Bridge && isPedestrianFamily(res.Name) {
		res.Name += BridgeSuffix
	}
	return res
}

func prepare(in Input, class string) *Subject {
	s := &Subject{Input: in, Base: class}
	object := fold(in.Object)

	switch {
	case hasSuffixFold(class, "tunnel"):
		s.Tunnel = true
		s.Base = trimSuffixFold(class, "tunnel")
	case strings.Contains(object, "tunnel"):
		s.Tunnel = true
	case hasSuffixFold(class, "bridge"):
		s.Bridge = true
		s.Base = trimSuffixFold(class, "bridge")
	case hasSuffixFold(class, "elevated"):
		s.Bridge = true
		s.Base = trimSuffixFold(class, "elevated")
	case strings.Contains(object, "bridge"), strings.Contains(object, "elevated"):
		s.Bridge = true
	}

	if strings.TrimSpace(s.Base) == "" {
		s.Base = class
	}
	s.class = fold(s.Base)
	s.object = object
	s.title = fold(in.Title)
	return s
}
