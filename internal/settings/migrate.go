package settings

import (
	"math"
	"strings"

	"github.com/charleschow/slope-limits/internal/telemetry"
)

type rename struct {
	from, to string
}

// Category renames by the version that introduced them. A file older than the
// version gets the rename applied.
var renames = []struct {
	before int
	rename
}{
	// v1 stored the player-facing label.
	{before: 2, rename: rename{from: "National Road", to: "Rural Highway"}},
	// v3 split metro track into surface and tunnel categories; old values were tunnel values.
	{before: 3, rename: rename{from: "Metro Track", to: "Metro Track Tunnel"}},
}

// Migrate upgrades f in place to CurrentVersion. Entries with empty names or
// non-finite values are always dropped. Files from a newer version are taken as-is.
func Migrate(f *File) {
	if f.Version > CurrentVersion {
		telemetry.Warnf("settings: file version %d is newer than %d, reading as-is", f.Version, CurrentVersion)
	}
	for _, r := range renames {
		if f.Version >= r.before {
			continue
		}
		f.Limits = applyRename(f.Limits, r.from, r.to)
		f.OriginalLimits = applyRename(f.OriginalLimits, r.from, r.to)
		f.IgnoredLimits = applyRename(f.IgnoredLimits, r.from, r.to)
		f.GenericLimits = applyRename(f.GenericLimits, strings.ToLower(r.from), strings.ToLower(r.to))
	}

	f.Limits = dropInvalid(f.Limits)
	f.GenericLimits = dropInvalid(f.GenericLimits)
	f.OriginalLimits = dropInvalid(f.OriginalLimits)
	f.IgnoredLimits = dropInvalid(f.IgnoredLimits)

	if f.Version < CurrentVersion {
		f.Version = CurrentVersion
	}
}

// applyRename moves from to to. When to already has an entry, from is dropped.
func applyRename(entries []Entry, from, to string) []Entry {
	hasTarget := false
	for _, e := range entries {
		if e.Name == to {
			hasTarget = true
			break
		}
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Name == from {
			if hasTarget {
				continue
			}
			e.Name = to
			hasTarget = true
		}
		out = append(out, e)
	}
	return out
}

func dropInvalid(entries []Entry) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" || math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			continue
		}
		out = append(out, e)
	}
	return out
}
