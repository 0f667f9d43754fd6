package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/charleschow/slope-limits/internal/app"
	"github.com/charleschow/slope-limits/internal/config"
	"github.com/charleschow/slope-limits/internal/core/journal"
	"github.com/charleschow/slope-limits/internal/core/naming"
	"github.com/charleschow/slope-limits/internal/core/resolver"
	"github.com/charleschow/slope-limits/internal/events"
	"github.com/charleschow/slope-limits/internal/fanout"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

type rootFlags struct {
	networks string
	settings string
	journal  string
	features []string
	logLevel string
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	f := &rootFlags{}

	root := &cobra.Command{
		Use:          "slopectl",
		Short:        "Inspect and apply network slope limits",
		SilenceUsage: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		telemetry.InitWriter(cmd.ErrOrStderr(), telemetry.ParseLogLevel(f.logLevel))
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.networks, "networks", cfg.NetworksPath, "networks snapshot file")
	pf.StringVar(&f.settings, "settings", cfg.SettingsPath, "slope limit settings file")
	pf.StringVar(&f.journal, "journal", cfg.JournalPath, "run journal database (empty disables)")
	pf.StringSliceVar(&f.features, "features", cfg.Features, "feature flags and mod ids reported as present")
	pf.StringVar(&f.logLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newClassifyCmd(f),
		newApplyCmd(f),
		newRestoreCmd(f),
		newDumpCmd(f),
		newSlidersCmd(f),
		newJournalCmd(f),
		newWatchCmd(cfg),
	)
	return root
}

// open builds a runtime and runs the first scan.
func (f *rootFlags) open() (*app.Runtime, error) {
	rt, err := app.Build(app.Options{
		NetworksPath: f.networks,
		SettingsPath: f.settings,
		JournalPath:  f.journal,
		Features:     f.features,
	})
	if err != nil {
		return nil, err
	}
	if err := rt.Resolver.Initialize(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func newClassifyCmd(f *rootFlags) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "classify [class object [title]]",
		Short: "Show the canonical name for one definition, or for every definition in the networks file",
		Args:  cobra.RangeArgs(0, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return fmt.Errorf("classify needs both class and object")
			}
			rt, err := app.Build(app.Options{NetworksPath: f.networks, SettingsPath: f.settings, Features: f.features})
			if err != nil {
				return err
			}
			defer rt.Close()

			var inputs []naming.Input
			if len(args) >= 2 {
				in := naming.Input{Collection: collection, Class: args[0], Object: args[1]}
				if len(args) == 3 {
					in.Title = args[2]
				}
				inputs = append(inputs, in)
			} else {
				cols, err := rt.Source.Collections()
				if err != nil {
					return err
				}
				for _, c := range cols {
					for _, n := range c.Networks {
						inputs = append(inputs, naming.Input{Collection: c.Name, Class: n.ClassName(), Object: n.ObjectName(), Title: n.Title()})
					}
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLLECTION\tOBJECT\tNAME\tRULE\tCATEGORY\tDISPLAY")
			for _, in := range inputs {
				res := rt.Classifier.Classify(in)
				rule := res.Rule
				if rule == "" {
					rule = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					in.Collection, in.Object, res.Name, rule,
					rt.Catalog.Category(res.Name).Name, rt.Catalog.DisplayName(res.Name))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection the definition belongs to")
	return cmd
}

func newApplyCmd(f *rootFlags) *cobra.Command {
	var policy, write string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a policy to the networks file and report what changed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := resolver.ParsePolicy(policy)
			if err != nil {
				return err
			}
			rt, err := f.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			var got events.PolicyChangedEvent
			rt.Bus.Subscribe(func(e events.Event) error {
				got = e.Payload.(events.PolicyChangedEvent)
				return nil
			}, events.EventPolicyChanged)

			if err := rt.Resolver.Apply(p); err != nil {
				return err
			}
			st := rt.Resolver.State()
			fmt.Fprintf(cmd.OutOrStdout(), "policy=%s phase=%s scanned=%d changed=%d discovered=%d\n",
				st.Policy, st.Phase, got.Scanned, got.Changed, got.Discovered)
			return writeNetworks(cmd, rt, write)
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "custom", "original, custom or disabled")
	cmd.Flags().StringVar(&write, "write", "", "write the resulting networks file here")
	return cmd
}

func newRestoreCmd(f *rootFlags) *cobra.Command {
	var write string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Write recorded original limits back onto the networks file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := f.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Resolver.Restore(true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d tracked names\n", rt.Limits.OriginalCount())
			return writeNetworks(cmd, rt, write)
		},
	}
	cmd.Flags().StringVar(&write, "write", "", "write the restored networks file here")
	return cmd
}

func writeNetworks(cmd *cobra.Command, rt *app.Runtime, path string) error {
	switch path {
	case "":
		return nil
	case "-":
		data, err := rt.Source.Encode()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return rt.Source.Save(path)
}

func newDumpCmd(f *rootFlags) *cobra.Command {
	var policy string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every definition with its live and resolved limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := f.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if policy != "" {
				p, err := resolver.ParsePolicy(policy)
				if err != nil {
					return err
				}
				if err := rt.Resolver.Apply(p); err != nil {
					return err
				}
			}
			return rt.Resolver.Dump(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "", "apply this policy before dumping")
	return cmd
}

func newSlidersCmd(f *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "sliders",
		Short: "List the editable categories in editor order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := f.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			sliders := rt.Resolver.Sliders()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sliders)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tLABEL\tCURRENT\tORIGINAL\tRANGE")
			for _, s := range sliders {
				cur, orig := "-", "-"
				if s.HasCurrent {
					cur = strconv.FormatFloat(s.Current, 'f', -1, 64)
				}
				if s.Original != nil {
					orig = strconv.FormatFloat(*s.Original, 'f', -1, 64)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g..%g\n", s.Group, s.Label, cur, orig, s.Min, s.Max)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newJournalCmd(f *rootFlags) *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent resolver runs, or the changes of one run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.journal == "" {
				return fmt.Errorf("no journal configured")
			}
			j, err := journal.Open(f.journal)
			if err != nil {
				return err
			}
			defer j.Close()

			if runID != "" {
				return printChanges(cmd.OutOrStdout(), j, runID)
			}
			runs, err := j.Recent(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tPOLICY\tWHEN\tTOOK\tSCANNED\tCHANGED\tDISCOVERED\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					r.ID, r.Kind, r.Policy, humanize.Time(r.Started), r.Duration,
					r.Scanned, r.Changed, r.Discovered, r.Err)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "show the changes recorded for this run id")
	return cmd
}

func printChanges(w io.Writer, j *journal.Store, runID string) error {
	changes, err := j.Changes(runID)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tOBJECT\tNAME\tOLD\tNEW")
	for _, c := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%g\n", c.Collection, c.Object, c.Name, c.Old, c.New)
	}
	return tw.Flush()
}

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var (
		addr  string
		types []string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream resolver events from a running service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			want := make([]events.EventType, 0, len(types))
			for _, t := range types {
				want = append(want, events.EventType(strings.TrimSpace(t)))
			}

			bus := events.NewBus()
			out := cmd.OutOrStdout()
			bus.Subscribe(func(e events.Event) error {
				data, err := fanout.MarshalEvent(e)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}, fanout.Forwarded...)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fanout.NewClient(addr, bus, want...).ConnectWithRetry(ctx)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", fmt.Sprintf("%s:%d", cfg.ControlHost, cfg.ControlPort), "control server host:port")
	cmd.Flags().StringSliceVar(&types, "types", nil, "event types to receive (default all)")
	return cmd
}
