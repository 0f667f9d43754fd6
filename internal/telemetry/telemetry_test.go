package telemetry

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerLevelsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, slog.LevelInfo)
	t.Cleanup(func() { Init(slog.LevelInfo) })

	Debugf("hidden %d", 1)
	Infof("scanned %d", 5)
	Warnf("skipping %q", "Water Pipe")
	L().With("run", "r1").Error("apply failed", "count", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "] scanned 5\n")
	assert.Contains(t, out, `WARN: skipping "Water Pipe"`)
	assert.Contains(t, out, "ERROR: apply failed run=r1 count=2")
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestLatencyTrackerKeepsRecentSamples(t *testing.T) {
	lt := NewLatencyTracker(3)
	assert.Zero(t, lt.P50())
	for _, ms := range []int{100, 1, 2, 3} {
		lt.Record(time.Duration(ms) * time.Millisecond)
	}
	assert.Equal(t, 2*time.Millisecond, lt.P50())
	assert.Equal(t, 2*time.Millisecond, lt.P99())
}
