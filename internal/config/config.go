package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Files
	SettingsPath string
	NetworksPath string
	JournalPath  string
	DumpPath     string

	// Control surface
	ControlHost string
	ControlPort int
	EditRate    float64 // accepted slider edits per second

	// Content probe: feature flags and mod ids reported as present.
	Features []string

	// Policy applied right after the first scan: "original", "custom" or "disabled".
	StartPolicy string

	// Alerts: Discord webhook for policy changes and resolver failures. Empty disables.
	DiscordWebhookURL string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SettingsPath: envStr("SLOPE_SETTINGS_PATH", "data/slope_limits.yaml"),
		NetworksPath: envStr("SLOPE_NETWORKS_PATH", "data/networks.yaml"),
		JournalPath:  envStr("SLOPE_JOURNAL_PATH", "data/journal.db"),
		DumpPath:     envStr("SLOPE_DUMP_PATH", "data/slope_limits_report.txt"),

		ControlHost: envStr("SLOPE_CONTROL_HOST", "127.0.0.1"),
		ControlPort: envInt("SLOPE_CONTROL_PORT", 8790),
		EditRate:    envFloat("SLOPE_EDIT_RATE", 20),

		Features: envList("SLOPE_FEATURES"),

		StartPolicy: envStr("SLOPE_START_POLICY", "custom"),

		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envList splits a comma separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
