package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(Run{ID: "a", Kind: KindInitialize, Policy: "original", Started: base, Scanned: 10}))
	require.NoError(t, s.Record(Run{
		ID: "b", Kind: KindApply, Policy: "custom", Started: base.Add(time.Minute),
		Duration: 1500 * time.Microsecond, Scanned: 10, Changed: 2, Discovered: 1,
		Changes: []Change{
			{Collection: "Road", Object: "Basic Road", Name: "Small Road", Old: 0.25, New: 0.3},
			{Collection: "Road", Object: "Highway", Name: "Highway", Old: 0.2, New: 0.15},
		},
	}))
	require.NoError(t, s.Record(Run{ID: "c", Kind: KindRestore, Policy: "original", Started: base.Add(2 * time.Minute), Err: "boom"}))

	runs, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "boom", runs[0].Err)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, 1500*time.Microsecond, runs[1].Duration)
	assert.True(t, runs[1].Started.Equal(base.Add(time.Minute)))
	assert.Equal(t, 2, runs[1].Changed)
	assert.Equal(t, 1, runs[1].Discovered)

	changes, err := s.Changes("b")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Collection: "Road", Object: "Basic Road", Name: "Small Road", Old: 0.25, New: 0.3}, changes[0])

	none, err := s.Changes("a")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecentOrdersSubSecondStarts(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC)

	// Inserted out of order so rowid cannot decide.
	require.NoError(t, s.Record(Run{ID: "whole", Kind: KindApply, Policy: "custom", Started: base.Add(time.Second)}))
	require.NoError(t, s.Record(Run{ID: "half", Kind: KindApply, Policy: "custom", Started: base.Add(500 * time.Millisecond)}))
	require.NoError(t, s.Record(Run{ID: "zero", Kind: KindApply, Policy: "custom", Started: base}))
	require.NoError(t, s.Record(Run{ID: "tenth", Kind: KindApply, Policy: "custom", Started: base.Add(120 * time.Millisecond)}))

	runs, err := s.Recent(4)
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"whole", "half", "tenth", "zero"}, ids)
	assert.True(t, runs[1].Started.Equal(base.Add(500*time.Millisecond)))

	latest, err := s.Recent(1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "whole", latest[0].ID)
}

func TestDuplicateRunIDRollsBack(t *testing.T) {
	s := openTemp(t)
	run := Run{ID: "dup", Kind: KindApply, Policy: "custom", Started: time.Now()}
	require.NoError(t, s.Record(run))

	run.Changes = []Change{{Collection: "Road", Object: "x", Name: "Small Road", Old: 1, New: 2}}
	assert.Error(t, s.Record(run))

	changes, err := s.Changes("dup")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(Run{ID: "x", Kind: KindApply, Policy: "disabled", Started: time.Now()}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "disabled", runs[0].Policy)
}
