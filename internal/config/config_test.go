package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SLOPE_CONTROL_PORT", "")
	t.Setenv("SLOPE_FEATURES", "")

	cfg := Load()
	assert.Equal(t, 8790, cfg.ControlPort)
	assert.Equal(t, "custom", cfg.StartPolicy)
	assert.Empty(t, cfg.Features)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SLOPE_CONTROL_PORT", "9001")
	t.Setenv("SLOPE_EDIT_RATE", "2.5")
	t.Setenv("SLOPE_FEATURES", " AfterDark, ,MassTransit ,MetroOverhaul")
	t.Setenv("SLOPE_START_POLICY", "disabled")

	cfg := Load()
	assert.Equal(t, 9001, cfg.ControlPort)
	assert.InDelta(t, 2.5, cfg.EditRate, 1e-9)
	assert.Equal(t, []string{"AfterDark", "MassTransit", "MetroOverhaul"}, cfg.Features)
	assert.Equal(t, "disabled", cfg.StartPolicy)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SLOPE_CONTROL_PORT", "not-a-port")
	t.Setenv("SLOPE_EDIT_RATE", "fast")

	cfg := Load()
	assert.Equal(t, 8790, cfg.ControlPort)
	assert.InDelta(t, 20.0, cfg.EditRate, 1e-9)
}
