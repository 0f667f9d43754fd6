package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charleschow/slope-limits/internal/adapters/inbound/control_http"
	"github.com/charleschow/slope-limits/internal/adapters/outbound/discord"
	"github.com/charleschow/slope-limits/internal/app"
	"github.com/charleschow/slope-limits/internal/config"
	"github.com/charleschow/slope-limits/internal/core/resolver"
	"github.com/charleschow/slope-limits/internal/fanout"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting slope limits")

	// ── Resolver ────────────────────────────────────────────────
	rt, err := app.Build(app.Options{
		NetworksPath: cfg.NetworksPath,
		SettingsPath: cfg.SettingsPath,
		JournalPath:  cfg.JournalPath,
		Features:     cfg.Features,
	})
	if err != nil {
		telemetry.Errorf("Startup: %v", err)
		os.Exit(1)
	}
	res := rt.Resolver

	// ── Alerts ──────────────────────────────────────────────────
	notifier := discord.NewNotifier(cfg.DiscordWebhookURL)
	notifier.Subscribe(rt.Bus)
	if notifier.Enabled() {
		telemetry.Infof("Discord alerts enabled")
	}

	if err := res.Initialize(); err != nil {
		telemetry.Errorf("Initialize: %v", err)
	}

	start, err := resolver.ParsePolicy(cfg.StartPolicy)
	if err != nil {
		telemetry.Warnf("SLOPE_START_POLICY: %v (keeping original limits)", err)
		start = resolver.Original
	}
	if err := res.Apply(start); err != nil {
		telemetry.Errorf("Apply %s: %v", start, err)
	}
	st := res.State()
	telemetry.Infof("Resolver %s  policy=%s  features=%v", st.Phase, st.Policy, cfg.Features)

	// ── Control server ──────────────────────────────────────────
	watch := fanout.NewServer(rt.Bus)
	mux := http.NewServeMux()
	control_http.NewHandler(res, cfg.EditRate).RegisterRoutes(mux)
	mux.HandleFunc("GET /ws", watch.HandleWS)

	addr := fmt.Sprintf("%s:%d", cfg.ControlHost, cfg.ControlPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Errorf("HTTP server: %v", err)
			os.Exit(1)
		}
	}()
	telemetry.Infof("Control listening on %q", addr)

	// ── Signals ─────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		if sig != syscall.SIGHUP {
			break
		}
		// Content reload: new definitions come in with engine defaults.
		if err := rt.Source.Reload(); err != nil {
			telemetry.Warnf("Reload networks: %v", err)
			continue
		}
		if err := rt.Reapply(); err != nil {
			telemetry.Errorf("Reapply after reload: %v", err)
		}
	}

	// ── Shutdown ────────────────────────────────────────────────
	telemetry.Infof("Shutting down...")

	if err := res.Restore(false); err != nil {
		telemetry.Errorf("Restore: %v", err)
	}
	if err := writeDump(cfg.DumpPath, res); err != nil {
		telemetry.Warnf("Dump: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	notifier.Wait()
	if err := rt.Close(); err != nil {
		telemetry.Warnf("Journal close: %v", err)
	}

	telemetry.Infof("Shutdown complete  scanned=%d  applied=%d  restored=%d  discovered=%d  saves=%d  save_errors=%d  apply_p99=%s",
		telemetry.Metrics.DefinitionsScanned.Value(),
		telemetry.Metrics.LimitsApplied.Value(),
		telemetry.Metrics.LimitsRestored.Value(),
		telemetry.Metrics.EntriesDiscovered.Value(),
		telemetry.Metrics.Saves.Value(),
		telemetry.Metrics.SaveErrors.Value(),
		telemetry.Metrics.ApplyLatency.P99(),
	)
}

func writeDump(path string, res *resolver.Resolver) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.Dump(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	telemetry.Infof("Report written to %s", path)
	return nil
}
