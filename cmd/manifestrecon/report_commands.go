package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"manifestrecon/internal/report"
	"manifestrecon/internal/stats"
	"manifestrecon/internal/store"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var all bool
	cmd := &cobra.Command{
		Use:   "log [manifest]",
		Short: "Show the audit log, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				var manifestID *int64
				if len(args) == 1 && !all {
					m, err := resolveManifest(cmd.Context(), a.store, args[0])
					if err != nil {
						return err
					}
					manifestID = store.Ref(m.ID)
				}
				entries, err := a.store.ListLogs(cmd.Context(), manifestID, limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSONList(cmd, entries)
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					manifest := "-"
					if e.ManifestID != nil {
						manifest = strconv.FormatInt(*e.ManifestID, 10)
					}
					rows = append(rows, []string{
						e.Timestamp.Local().Format("2006-01-02 15:04:05"),
						manifest,
						e.Action,
						e.Detail,
						e.Operator,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"When", "Manifest", "Action", "Detail", "Operator"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries (0 for all)")
	cmd.Flags().BoolVar(&all, "all", false, "Show entries of every manifest")
	return cmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <manifest>",
		Short: "Show receiving statistics for a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				r, err := report.Build(cmd.Context(), a.store, m.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, r.Summary)
				}
				printSummary(cmd, r.Summary)
				return nil
			})
		},
	}
}

func printSummary(cmd *cobra.Command, s stats.Summary) {
	w := cmd.OutOrStdout()
	colorize := shouldColorize(w)
	st := s.Statistics
	fmt.Fprintf(w, "Manifest %s: %s\n", s.Manifest.Number, statusText(string(s.Manifest.Status), colorize))
	fmt.Fprintf(w, "Boxes: %d/%d (%.1f%%)\n", st.ReceivedBoxes, st.ExpectedBoxes, st.PercentReceived)
	fmt.Fprintf(w, "Weight: %.2f kg  Cubage: %.3f m³\n", st.TotalWeight, st.TotalCubage)
	if s.Window > 0 {
		fmt.Fprintf(w, "Receiving window: %s\n", s.Window.Round(time.Second))
	}

	statusRows := make([][]string, 0, len(s.Statuses))
	for _, share := range s.Statuses {
		statusRows = append(statusRows, []string{
			statusText(string(share.Status), colorize),
			strconv.Itoa(share.Count),
			fmt.Sprintf("%.1f%%", share.Percent),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Status", "Volumes", "Share"}, statusRows,
		[]columnAlignment{alignLeft, alignRight, alignRight}))

	senderRows := make([][]string, 0, len(s.Senders))
	for _, r := range s.Senders {
		senderRows = append(senderRows, []string{
			r.Sender,
			strconv.Itoa(r.Volumes),
			fmt.Sprintf("%d/%d", r.Received, r.Expected),
			strconv.Itoa(r.Outstanding()),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Sender", "Volumes", "Boxes", "Outstanding"}, senderRows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))

	if len(s.Outstanding) > 0 {
		fmt.Fprintf(w, "%d boxes outstanding in %d volumes\n", s.OutstandingBoxes(), len(s.Outstanding))
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a manifest reconciliation as CSV or PDF",
	}
	cmd.AddCommand(newExportFormatCommand(ctx, "csv", report.WriteCSV))
	cmd.AddCommand(newExportFormatCommand(ctx, "pdf", report.WritePDF))
	return cmd
}

func newExportFormatCommand(ctx *commandContext, format string, write func(w io.Writer, r report.Report) error) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   format + " <manifest>",
		Short: "Write the reconciliation as " + strings.ToUpper(format),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				r, err := report.Build(cmd.Context(), a.store, m.ID)
				if err != nil {
					return err
				}
				target := strings.TrimSpace(output)
				if target == "" {
					target = filepath.Join(a.cfg.Paths.ExportDir, fmt.Sprintf("manifesto_%s.%s", m.Number, format))
				}
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return fmt.Errorf("create export directory: %w", err)
				}
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				if err := write(f, r); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "O", "", "Output file (default <export_dir>/manifesto_<number>.<format>)")
	return cmd
}
