package resolver

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/charleschow/slope-limits/internal/core/catalog"
	"github.com/charleschow/slope-limits/internal/core/journal"
	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/core/naming"
	"github.com/charleschow/slope-limits/internal/events"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

var ErrInvalidPolicy = errors.New("invalid policy")

// Resolver applies policies to live network definitions. Initialize, SetPolicy,
// Restore and Dump hold one mutex for their whole run and must not call each other.
type Resolver struct {
	src        Source
	classifier *naming.Classifier
	cat        *catalog.Catalog
	store      *limits.Store
	bus        *events.Bus

	mu      sync.Mutex
	state   State
	journal Journal
}

func New(src Source, classifier *naming.Classifier, cat *catalog.Catalog, store *limits.Store, bus *events.Bus) *Resolver {
	return &Resolver{
		src:        src,
		classifier: classifier,
		cat:        cat,
		store:      store,
		bus:        bus,
	}
}

// AttachJournal enables run recording. A nil journal disables it.
func (r *Resolver) AttachJournal(j Journal) {
	r.mu.Lock()
	r.journal = j
	r.mu.Unlock()
}

func (r *Resolver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resolver) Policy() Policy { return r.State().Policy }

// item is one live definition with its classification.
type item struct {
	collection string
	net        Network
	class      string
	object     string
	name       string
	rule       string
	ignored    bool
}

// scan enumerates the live definitions and calls fn for each. A definition whose
// accessors or fn panic is logged and skipped.
func (r *Resolver) scan(op string, fn func(it item)) (int, error) {
	cols, err := r.src.Collections()
	if err != nil {
		return 0, fmt.Errorf("enumerate networks: %w", err)
	}
	scanned := 0
	for _, col := range cols {
		for _, n := range col.Networks {
			if r.visit(op, col.Name, n, fn) {
				scanned++
			}
		}
	}
	return scanned, nil
}

func (r *Resolver) visit(op, collection string, n Network, fn func(it item)) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			telemetry.Metrics.DefinitionsSkipped.Inc()
			telemetry.Warnf("%s: skipping definition in %q: %v", op, collection, p)
			ok = false
		}
	}()
	if n == nil {
		telemetry.Metrics.DefinitionsSkipped.Inc()
		telemetry.Warnf("%s: nil definition in %q", op, collection)
		return false
	}
	in := naming.Input{Collection: collection, Class: n.ClassName(), Object: n.ObjectName(), Title: n.Title()}
	cl := r.classifier.Classify(in)
	fn(item{
		collection: collection,
		net:        n,
		class:      in.Class,
		object:     in.Object,
		name:       cl.Name,
		rule:       cl.Rule,
		ignored:    r.cat.IsIgnored(collection, cl.Name) || r.store.IsIgnored(cl.Name),
	})
	telemetry.Metrics.DefinitionsScanned.Inc()
	return true
}

// guard turns a panic in fn into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// seedable reports whether a newly seen name gets an explicit entry at initialization.
func (r *Resolver) seedable(name string) bool {
	if c, ok := r.cat.Lookup(name); ok {
		return r.cat.Supported(c)
	}
	if fb, ok := r.cat.FallbackName(name); ok {
		if c, ok := r.cat.Lookup(fb); ok {
			return r.cat.Supported(c)
		}
	}
	return false
}

// breakLocked moves the resolver to Broken and returns the event announcing it.
func (r *Resolver) breakLocked(op string, err error) events.Event {
	r.state.Phase = Broken
	telemetry.Errorf("%s failed, resolver stopped applying limits: %v", op, err)
	return events.New(events.EventResolverBroken, uuid.NewString(), events.ResolverBrokenEvent{
		Operation: op,
		Reason:    err.Error(),
	})
}

func (r *Resolver) recordLocked(run journal.Run) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(run); err != nil {
		telemetry.Warnf("journal: record %s run %s: %v", run.Kind, run.ID, err)
	}
}

func (r *Resolver) publish(evs []events.Event) {
	for _, e := range evs {
		r.bus.Publish(e)
	}
}

// Initialize records the original limit of every live definition and seeds explicit
// entries for names the catalog knows. It runs once; later calls are no-ops.
func (r *Resolver) Initialize() error {
	var pending []events.Event
	defer func() { r.publish(pending) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase != Uninitialized {
		return nil
	}

	run := journal.Run{ID: uuid.NewString(), Kind: journal.KindInitialize, Policy: Original.String(), Started: time.Now()}
	changed := false
	err := guard(func() error {
		r.store.BeginBulk()
		defer r.store.EndBulk()

		scanned, err := r.scan("initialize", func(it item) {
			v := it.net.SlopeLimit()
			if it.ignored {
				telemetry.Metrics.IgnoredDefinitions.Inc()
				if r.store.RecordIgnored(it.name, v) {
					changed = true
				}
				return
			}
			if r.store.RecordOriginal(it.name, v) {
				changed = true
				run.Discovered++
			}
			if r.seedable(it.name) {
				if r.store.SeedExplicit(it.name, v) {
					changed = true
				}
			} else if it.rule == "" {
				telemetry.Debugf("initialize: unclassified network %q (object %q) in %q", it.name, it.object, it.collection)
			}
		})
		run.Scanned = scanned
		if err != nil {
			return err
		}
		if r.store.RebuildGenerics() {
			changed = true
		}
		return nil
	})
	run.Duration = time.Since(run.Started)

	if err != nil {
		run.Err = err.Error()
		r.recordLocked(run)
		pending = append(pending, r.breakLocked("initialize", err))
		return err
	}

	if r.store.OriginalCount() > 0 {
		r.state = State{Phase: Ready, Policy: Original}
	}
	if changed {
		r.store.Save()
	}
	r.recordLocked(run)
	telemetry.Infof("initialize: scanned=%d new=%d phase=%s", run.Scanned, run.Discovered, r.state.Phase)
	return nil
}

// SetPolicy writes the limits of target to every live, non-ignored definition.
// It does nothing when the resolver is broken, not initialized, or already on
// target, unless reapply is set. Original is not a valid target; use Restore.
func (r *Resolver) SetPolicy(target Policy, reapply bool) error {
	var pending []events.Event
	defer func() { r.publish(pending) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase != Ready {
		return nil
	}
	if r.state.Policy == target && !reapply {
		return nil
	}
	if target != Custom && target != Disabled {
		err := fmt.Errorf("%w: %s is not an applicable policy", ErrInvalidPolicy, target)
		pending = append(pending, r.breakLocked("set policy", err))
		return err
	}

	previous := r.state.Policy
	run := journal.Run{ID: uuid.NewString(), Kind: journal.KindApply, Policy: target.String(), Started: time.Now()}
	recorded := false
	err := guard(func() error {
		scanned, err := r.scan("set policy", func(it item) {
			if it.ignored {
				return
			}
			live := it.net.SlopeLimit()
			orig, hasOrig := r.store.Original(it.name)
			if !hasOrig && r.store.RecordOriginal(it.name, live) {
				orig, hasOrig = live, true
				recorded = true
			}

			configured, _, found := r.store.GetLimit(it.name)
			if !found {
				seed := live
				if hasOrig {
					seed = orig
				}
				if r.store.SeedExplicit(it.name, seed) {
					recorded = true
					run.Discovered++
					telemetry.Metrics.EntriesDiscovered.Inc()
					pending = append(pending, events.New(events.EventNetworkDiscovered, uuid.NewString(), events.NetworkDiscoveredEvent{
						Collection: it.collection,
						Object:     it.object,
						Name:       it.name,
						Value:      seed,
					}))
				}
				configured, found = seed, finite(seed)
			}

			var want float64
			switch target {
			case Custom:
				if !found {
					return
				}
				want = configured
			case Disabled:
				if !hasOrig {
					return
				}
				want = Relaxed(orig, configured)
			}
			if want == live {
				return
			}
			it.net.SetSlopeLimit(want)
			telemetry.Metrics.LimitsApplied.Inc()
			run.Changes = append(run.Changes, journal.Change{
				Collection: it.collection, Object: it.object, Name: it.name, Old: live, New: want,
			})
		})
		run.Scanned = scanned
		return err
	})
	run.Duration = time.Since(run.Started)
	run.Changed = len(run.Changes)
	telemetry.Metrics.ApplyLatency.Record(run.Duration)

	if recorded {
		r.store.Save()
	}
	if err != nil {
		run.Err = err.Error()
		r.recordLocked(run)
		pending = append(pending, r.breakLocked("set policy", err))
		return err
	}

	r.state.Policy = target
	r.recordLocked(run)
	pending = append(pending, events.New(events.EventPolicyChanged, run.ID, events.PolicyChangedEvent{
		RunID:      run.ID,
		Policy:     target.String(),
		Previous:   previous.String(),
		Scanned:    run.Scanned,
		Changed:    run.Changed,
		Discovered: run.Discovered,
	}))
	telemetry.Infof("set policy %s: scanned=%d changed=%d discovered=%d in %s",
		target, run.Scanned, run.Changed, run.Discovered, run.Duration.Round(time.Microsecond))
	return nil
}

// Restore writes the recorded original back to every live, non-ignored definition.
// Before initialization and once broken it is a no-op unless force is set. When it
// runs, the policy ends as Original whether or not the pass completed; a forced
// restore leaves a broken resolver broken.
func (r *Resolver) Restore(force bool) error {
	var pending []events.Event
	defer func() { r.publish(pending) }()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Phase == Uninitialized && !force {
		return nil
	}
	if r.state.Phase == Broken && !force {
		telemetry.Warnf("restore: resolver is broken, live limits stay at policy %s", r.state.Policy)
		return nil
	}

	previous := r.state.Policy
	defer func() { r.state.Policy = Original }()

	run := journal.Run{ID: uuid.NewString(), Kind: journal.KindRestore, Policy: Original.String(), Started: time.Now()}
	err := guard(func() error {
		scanned, err := r.scan("restore", func(it item) {
			if it.ignored {
				return
			}
			orig, ok := r.store.Original(it.name)
			if !ok {
				return
			}
			live := it.net.SlopeLimit()
			if live == orig {
				return
			}
			it.net.SetSlopeLimit(orig)
			telemetry.Metrics.LimitsRestored.Inc()
			run.Changes = append(run.Changes, journal.Change{
				Collection: it.collection, Object: it.object, Name: it.name, Old: live, New: orig,
			})
		})
		run.Scanned = scanned
		return err
	})
	run.Duration = time.Since(run.Started)
	run.Changed = len(run.Changes)
	telemetry.Metrics.RestoreLatency.Record(run.Duration)

	if err != nil {
		run.Err = err.Error()
		r.recordLocked(run)
		telemetry.Errorf("restore: %v", err)
		return fmt.Errorf("restore: %w", err)
	}

	r.recordLocked(run)
	pending = append(pending, events.New(events.EventPolicyChanged, run.ID, events.PolicyChangedEvent{
		RunID:    run.ID,
		Policy:   Original.String(),
		Previous: previous.String(),
		Scanned:  run.Scanned,
		Changed:  run.Changed,
	}))
	telemetry.Infof("restore: scanned=%d changed=%d", run.Scanned, run.Changed)
	return nil
}

// Apply is the toggle entry point: Original restores, anything else is SetPolicy.
func (r *Resolver) Apply(p Policy) error {
	if p == Original {
		return r.Restore(false)
	}
	return r.SetPolicy(p, false)
}

// SetLimit stores a user edit and, when a non-original policy is active, re-applies
// it so the edit reaches live definitions.
func (r *Resolver) SetLimit(name string, value float64) (limits.Edit, error) {
	e, err := r.store.Edit(name, value)
	if err != nil {
		if s, ok := r.cat.Suggest(name); ok {
			telemetry.Warnf("rejected edit for %q: %v (closest category %q)", name, err, s)
		} else {
			telemetry.Warnf("rejected edit for %q: %v", name, err)
		}
		return e, err
	}
	if !e.Changed {
		return e, nil
	}
	r.bus.Publish(events.New(events.EventLimitChanged, uuid.NewString(), events.LimitChangedEvent{
		Name:     e.Name,
		Value:    e.Value,
		Previous: e.Previous,
	}))

	st := r.State()
	if st.Phase == Ready && st.Policy != Original {
		if err := r.SetPolicy(st.Policy, true); err != nil {
			return e, err
		}
	}
	return e, nil
}

// Suggest returns the closest category name, for callers reporting a rejected edit.
func (r *Resolver) Suggest(name string) (string, bool) {
	return r.cat.Suggest(name)
}
