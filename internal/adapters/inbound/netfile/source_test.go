package netfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/slope-limits/internal/core/catalog"
	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/core/naming"
	"github.com/charleschow/slope-limits/internal/core/resolver"
)

const sample = `
collections:
  - name: Road
    networks:
      - class: Small Road
        object: Basic Road
        slope_limit: 0.25
      - class: Highway
        object: Highway 3L Custom
        title: Route Nationale à 3 voies
        slope_limit: 0.2
      -
  - name: Water
    networks:
      - class: Water
        object: Water Pipe
        slope_limit: 0.5
`

func TestParseCollections(t *testing.T) {
	src, err := Parse([]byte(sample))
	require.NoError(t, err)

	cols, err := src.Collections()
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "Road", cols[0].Name)
	require.Len(t, cols[0].Networks, 2, "empty entries are dropped")

	hw := cols[0].Networks[1]
	assert.Equal(t, "Highway", hw.ClassName())
	assert.Equal(t, "Highway 3L Custom", hw.ObjectName())
	assert.Equal(t, "Route Nationale à 3 voies", hw.Title())
	assert.Equal(t, 0.2, hw.SlopeLimit())
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse([]byte("collections: {"))
	assert.Error(t, err)
}

func TestSaveWritesCurrentLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	src, err := Load(path)
	require.NoError(t, err)
	cols, _ := src.Collections()
	cols[0].Networks[0].SetSlopeLimit(0.4)
	src.Add("Addons", &Definition{Class: "Quantum Conveyor", Object: "Conveyor 9000", Limit: 0.6})

	out := filepath.Join(dir, "out.yaml")
	require.NoError(t, src.Save(out))

	again, err := Load(out)
	require.NoError(t, err)
	cols, _ = again.Collections()
	require.Len(t, cols, 3)
	assert.Equal(t, 0.4, cols[0].Networks[0].SlopeLimit())
	assert.Equal(t, "Addons", cols[2].Name)
	assert.Equal(t, "Quantum Conveyor", cols[2].Networks[0].ClassName())
}

func TestReloadReplacesDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	src, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("collections:\n  - name: Road\n    networks: []\n"), 0o644))
	require.NoError(t, src.Reload())
	cols, _ := src.Collections()
	require.Len(t, cols, 1)
	assert.Empty(t, cols[0].Networks)

	parsed, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Error(t, parsed.Reload(), "parsed sources have no file to reload")
}

func TestDrivesResolver(t *testing.T) {
	src, err := Parse([]byte(sample))
	require.NoError(t, err)

	cat := catalog.New(catalog.StaticProbe("NetworkExtensions2"))
	store := limits.New(cat, nil)
	res := resolver.New(src, naming.NewClassifier(), cat, store, nil)
	require.NoError(t, res.Initialize())

	_, err = res.SetLimit("Rural Highway", 0.1)
	require.NoError(t, err)
	require.NoError(t, res.SetPolicy(resolver.Disabled, false))

	cols, _ := src.Collections()
	assert.InDelta(t, resolver.Relaxed(0.2, 0.1), cols[0].Networks[1].SlopeLimit(), 1e-12)
	assert.Equal(t, 0.5, cols[1].Networks[0].SlopeLimit())

	require.NoError(t, res.Restore(false))
	assert.Equal(t, 0.2, cols[0].Networks[1].SlopeLimit())
}
