package telemetry

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type Counter struct {
	val atomic.Int64
}

func (c *Counter) Inc()         { c.val.Add(1) }
func (c *Counter) Add(n int64)  { c.val.Add(n) }
func (c *Counter) Value() int64 { return c.val.Load() }

type Gauge struct {
	val atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.val.Store(v) }
func (g *Gauge) Value() int64 { return g.val.Load() }

// LatencyTracker keeps the most recent maxKeep samples.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []time.Duration
	maxKeep int
}

func NewLatencyTracker(maxKeep int) *LatencyTracker {
	return &LatencyTracker{maxKeep: maxKeep}
}

func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.samples = append(lt.samples, d)
	if len(lt.samples) > lt.maxKeep {
		lt.samples = lt.samples[len(lt.samples)-lt.maxKeep:]
	}
}

func (lt *LatencyTracker) P50() time.Duration { return lt.percentile(0.50) }
func (lt *LatencyTracker) P99() time.Duration { return lt.percentile(0.99) }

func (lt *LatencyTracker) percentile(p float64) time.Duration {
	lt.mu.Lock()
	sorted := slices.Clone(lt.samples)
	lt.mu.Unlock()
	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// Metrics is the global metrics registry.
var Metrics = struct {
	Classifications    Counter
	ClassifierHits     Counter
	PassThroughNames   Counter
	DefinitionsScanned Counter
	DefinitionsSkipped Counter
	IgnoredDefinitions Counter
	LimitsApplied      Counter
	LimitsRestored     Counter
	EntriesDiscovered  Counter
	Saves              Counter
	SaveErrors         Counter
	RejectedEdits      Counter
	TrackedNames       Gauge
	ApplyLatency       *LatencyTracker
	RestoreLatency     *LatencyTracker
}{
	ApplyLatency:   NewLatencyTracker(200),
	RestoreLatency: NewLatencyTracker(200),
}
