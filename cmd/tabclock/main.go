package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tabclock/internal/bootstrap"
	attentiondto "tabclock/internal/modules/attention/dto"
	sessiondto "tabclock/internal/modules/session/dto"
	trackerdto "tabclock/internal/modules/tracker/dto"
	"tabclock/internal/platform/config"
	apperrors "tabclock/internal/platform/errors"
	domainsview "tabclock/internal/ui/views/domains"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "tabclock",
		Short:         "Per-domain browser attention and session tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", defaultDataDir(), "data directory (database, socket, tabclock.yaml)")

	root.AddCommand(newDaemonCmd(&dataDir))
	root.AddCommand(newEventCmd(&dataDir))
	root.AddCommand(newBridgeCmd(&dataDir))
	root.AddCommand(newFlushCmd(&dataDir))
	root.AddCommand(newReportCmd(&dataDir))
	root.AddCommand(newSessionsCmd(&dataDir))
	root.AddCommand(newMaxSessionsCmd(&dataDir))
	root.AddCommand(newTopCmd(&dataDir))
	return root
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tabclock")
	}
	return ".tabclock"
}

func loadApp(dataDir string) (*bootstrap.App, error) {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg, os.Stderr)
}

// withApp builds the app for one command and closes it afterwards.
func withApp(dataDir string, fn func(app *bootstrap.App) error) error {
	app, err := loadApp(dataDir)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newDaemonCmd(dataDir *string) *cobra.Command {
	daemon := &cobra.Command{Use: "daemon", Short: "Manage the tracker daemon"}
	daemon.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the tracker daemon in the foreground",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(*dataDir, func(app *bootstrap.App) error {
				return app.TrackerCLI.RunDaemon(ctx)
			})
		},
	})
	daemon.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the tracker daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.StartDaemon(context.Background()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon started")
				return nil
			})
		},
	})
	daemon.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the tracker daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.StopDaemon(context.Background()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "daemon stopped")
				return nil
			})
		},
	})
	var statusFormat string
	status := &cobra.Command{
		Use:   "status",
		Short: "Show tracker daemon status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				status, err := app.TrackerCLI.DaemonStatus(context.Background())
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), statusFormat, status, func(w io.Writer) {
					writeStatus(w, status)
				})
			})
		},
	}
	status.Flags().StringVar(&statusFormat, "format", "text", "output format: text|json|yaml")
	daemon.AddCommand(status)

	var logTail int
	logs := &cobra.Command{
		Use:   "logs",
		Short: "Show background daemon logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				payload, err := app.TrackerCLI.DaemonLogs(context.Background(), logTail)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), payload)
				return nil
			})
		},
	}
	logs.Flags().IntVar(&logTail, "tail", 200, "log lines to show from the end")
	daemon.AddCommand(logs)
	return daemon
}

func newEventCmd(dataDir *string) *cobra.Command {
	var event trackerdto.Event
	var kind string
	cmd := &cobra.Command{
		Use:   "event --kind <kind>",
		Short: "Send one browser event to the daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			event.Kind = trackerdto.Kind(strings.TrimSpace(kind))
			return withApp(*dataDir, func(app *bootstrap.App) error {
				return app.TrackerCLI.SendEvent(context.Background(), event)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "event kind: "+joinKinds())
	cmd.Flags().StringVar(&event.TabID, "tab", "", "tab id")
	cmd.Flags().StringVar(&event.WindowID, "window", "", "window id (empty focus change means the browser lost focus)")
	cmd.Flags().StringVar(&event.URL, "url", "", "tab url")
	cmd.Flags().StringVar(&event.Title, "title", "", "tab title")
	return cmd
}

func newBridgeCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Forward newline-delimited JSON events from stdin to the daemon",
		Long: "Reads one JSON event per line, e.g. " +
			`{"kind":"tab_activated","tab_id":"12","window_id":"1"}` +
			". Invalid lines are reported on stderr and skipped.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					line := strings.TrimSpace(scanner.Text())
					if line == "" {
						continue
					}
					var event trackerdto.Event
					if err := json.Unmarshal([]byte(line), &event); err != nil {
						app.Logger.Warn("skip malformed event", "error", err)
						continue
					}
					err := app.TrackerCLI.SendEvent(context.Background(), event)
					switch {
					case errors.Is(err, apperrors.ErrDaemonNotRunning):
						return err
					case err != nil:
						app.Logger.Warn("event rejected", "kind", event.Kind, "error", err)
					}
				}
				return scanner.Err()
			})
		},
	}
}

func newFlushCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Commit the running attention segment now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				if err := app.TrackerCLI.Flush(context.Background()); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "flushed")
				return nil
			})
		},
	}
}

func newReportCmd(dataDir *string) *cobra.Command {
	var days int
	var format string
	var offline bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show time per domain over the last N days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				var report attentiondto.TimeDataOutput
				var err error
				if offline {
					report, err = app.AttentionCLI.Report(context.Background(), days)
				} else {
					report, err = app.TrackerCLI.TimeData(context.Background(), days)
				}
				if err != nil {
					return withOfflineHint(err)
				}
				return render(cmd.OutOrStdout(), format, report, func(w io.Writer) {
					writeReport(w, report)
				})
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 1, "window size in local days, today included")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text|json|yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "read the database directly instead of asking the daemon")
	return cmd
}

func newSessionsCmd(dataDir *string) *cobra.Command {
	var format string
	var offline bool
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List archived browsing sessions and the current one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				var out sessiondto.SessionsOutput
				var err error
				if offline {
					out, err = app.SessionCLI.Sessions(context.Background())
				} else {
					out, err = app.TrackerCLI.Sessions(context.Background())
				}
				if err != nil {
					return withOfflineHint(err)
				}
				return render(cmd.OutOrStdout(), format, out, func(w io.Writer) {
					writeSessions(w, out)
				})
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "output format: text|json|yaml")
	cmd.Flags().BoolVar(&offline, "offline", false, "read the database directly instead of asking the daemon")
	return cmd
}

func newMaxSessionsCmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "max-sessions <n>",
		Short: "Set how many finished sessions are kept (1-20)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: max-sessions must be an integer", apperrors.ErrInvalidInput)
			}
			return withApp(*dataDir, func(app *bootstrap.App) error {
				applied, err := app.TrackerCLI.SetMaxSessions(context.Background(), n)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "max sessions: %d\n", applied)
				return nil
			})
		},
	}
}

func newTopCmd(dataDir *string) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live dashboard of the running daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			return withApp(*dataDir, func(app *bootstrap.App) error {
				return bootstrap.RunTUI(app, days)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 1, "initial window size in local days")
	return cmd
}

// ─── output ──────────────────────────────────────────────────────────────────

func render(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		text(w)
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown format %q", apperrors.ErrInvalidInput, format)
	}
}

func writeStatus(w io.Writer, status trackerdto.DaemonStatusOutput) {
	_, _ = fmt.Fprintf(w, "running=%t pid=%d socket=%s\n", status.Running, status.PID, status.SocketPath)
	st := status.Status
	if st == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "state=%s", st.Attention.State)
	if st.Attention.Domain != "" {
		_, _ = fmt.Fprintf(w, " domain=%s tab=%s since=%s", st.Attention.Domain, st.Attention.TabID, st.Attention.Since.Format(time.TimeOnly))
	}
	_, _ = fmt.Fprintln(w)
	if st.Session != nil {
		_, _ = fmt.Fprintf(w, "session=%s started=%s tabs=%d\n", st.Session.ID, st.Session.Start.Format(time.DateTime), st.Session.Tabs)
	}
	_, _ = fmt.Fprintf(w, "events=%d failures=%d up_since=%s\n", st.Events, st.Failures, st.StartedAt.Format(time.DateTime))
}

func writeReport(w io.Writer, report attentiondto.TimeDataOutput) {
	_, _ = fmt.Fprintf(w, "%s → %s (%d day(s))  total %s\n", report.From, report.To, report.Days, domainsview.FormatMs(report.TotalMs))
	if len(report.Totals) == 0 {
		_, _ = fmt.Fprintln(w, "no time recorded")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, t := range report.Totals {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d ms\n", t.Domain, domainsview.FormatMs(t.Ms), t.Ms)
	}
	_ = tw.Flush()
}

func writeSessions(w io.Writer, out sessiondto.SessionsOutput) {
	if cur := out.Current; cur != nil {
		_, _ = fmt.Fprintf(w, "current %s since %s (%d tab(s))\n", cur.ID, cur.Start.Format(time.DateTime), len(cur.Tabs))
	}
	_, _ = fmt.Fprintf(w, "archive (keep %d):\n", out.MaxSessions)
	if len(out.Sessions) == 0 {
		_, _ = fmt.Fprintln(w, "  none")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range out.Sessions {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%d tab(s)\n", s.ID, s.Start.Format(time.DateTime), s.End.Format(time.DateTime), s.TabCount)
	}
	_ = tw.Flush()
}

func withOfflineHint(err error) error {
	if errors.Is(err, apperrors.ErrDaemonNotRunning) {
		return fmt.Errorf("%w (start it with `tabclock daemon start` or pass --offline)", err)
	}
	return err
}

func joinKinds() string {
	kinds := make([]string, len(trackerdto.Kinds))
	for i, k := range trackerdto.Kinds {
		kinds[i] = string(k)
	}
	return strings.Join(kinds, "|")
}
