package app

import (
	"fmt"

	"github.com/charleschow/slope-limits/internal/adapters/inbound/netfile"
	"github.com/charleschow/slope-limits/internal/core/catalog"
	"github.com/charleschow/slope-limits/internal/core/journal"
	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/core/naming"
	"github.com/charleschow/slope-limits/internal/core/resolver"
	"github.com/charleschow/slope-limits/internal/events"
	"github.com/charleschow/slope-limits/internal/settings"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

// Options selects the files and content probe a Runtime is built from.
type Options struct {
	NetworksPath string
	SettingsPath string
	JournalPath  string // empty disables the journal
	Features     []string
}

// Runtime holds one fully wired resolver and the stores behind it.
type Runtime struct {
	Bus        *events.Bus
	Catalog    *catalog.Catalog
	Classifier *naming.Classifier
	Settings   *settings.Store
	Limits     *limits.Store
	Source     *netfile.Source
	Journal    *journal.Store
	Resolver   *resolver.Resolver
}

// Build wires the resolver. A missing or unreadable settings file falls back
// to empty defaults; a journal that cannot open is skipped with a warning.
func Build(opts Options) (*Runtime, error) {
	rt := &Runtime{
		Bus:        events.NewBus(),
		Catalog:    catalog.New(catalog.StaticProbe(opts.Features...)),
		Classifier: naming.NewClassifier(),
		Settings:   settings.NewStore(opts.SettingsPath),
	}

	snap, err := rt.Settings.Load()
	if err != nil {
		telemetry.Errorf("Settings unreadable, starting from defaults: %v", err)
	}
	rt.Limits = limits.FromSnapshot(rt.Catalog, rt.Settings, snap)

	rt.Source, err = netfile.Load(opts.NetworksPath)
	if err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}

	rt.Resolver = resolver.New(rt.Source, rt.Classifier, rt.Catalog, rt.Limits, rt.Bus)

	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath)
		if err != nil {
			telemetry.Warnf("Journal disabled: %v", err)
		} else {
			rt.Journal = j
			rt.Resolver.AttachJournal(j)
		}
	}
	return rt, nil
}

// Reapply pushes the current policy onto the live definitions again, or
// writes originals back when the policy is Original.
func (rt *Runtime) Reapply() error {
	if p := rt.Resolver.Policy(); p != resolver.Original {
		return rt.Resolver.SetPolicy(p, true)
	}
	return rt.Resolver.Restore(false)
}

func (rt *Runtime) Close() error {
	if rt.Journal == nil {
		return nil
	}
	return rt.Journal.Close()
}
