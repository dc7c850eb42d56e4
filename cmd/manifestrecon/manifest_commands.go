package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"manifestrecon/internal/auth"
	"manifestrecon/internal/extract"
	"manifestrecon/internal/store"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Register, inspect and delete manifests",
	}
	cmd.AddCommand(newManifestImportCommand(ctx))
	cmd.AddCommand(newManifestAddCommand(ctx))
	cmd.AddCommand(newManifestListCommand(ctx))
	cmd.AddCommand(newManifestShowCommand(ctx))
	cmd.AddCommand(newManifestDeleteCommand(ctx))
	return cmd
}

func newManifestImportCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Extract a manifest document (.pdf or .txt) and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			extractor, err := extract.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			path := args[0]
			text, err := extract.NewSource(cfg.Extraction.PdftotextBinary).ReadDocument(cmd.Context(), path)
			if err != nil {
				return err
			}
			res := extractor.Extract(text)

			if dryRun {
				if ctx.JSONMode() {
					return writeJSON(cmd, res)
				}
				printExtraction(cmd, res)
				return nil
			}

			return ctx.withApp(cmd, func(a *app) error {
				out, err := a.service.Import(cmd.Context(), res, filepath.Base(path), ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, out)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Imported manifest %s (id %d): %d volumes, %d boxes\n",
					out.Manifest.Number, out.Manifest.ID, len(out.Volumes), out.Boxes)
				for _, number := range out.Skipped {
					fmt.Fprintf(w, "Skipped volume %s: no positive box count\n", number)
				}
				printWarnings(cmd, out.Warnings)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the extraction without registering anything")
	return cmd
}

func printExtraction(cmd *cobra.Command, res extract.Result) {
	w := cmd.OutOrStdout()
	h := res.Header
	fmt.Fprintf(w, "Manifest: %s\n", orDash(h.Number))
	if h.Date != nil {
		fmt.Fprintf(w, "Date: %s\n", h.Date.Format(store.DateLayout))
	} else {
		fmt.Fprintln(w, "Date: -")
	}
	fmt.Fprintf(w, "Route: %s -> %s\n", orDash(h.Origin), orDash(h.Destination))
	fmt.Fprintf(w, "Mission: %s  Aircraft: %s\n", orDash(h.Mission), orDash(h.Aircraft))

	rows := make([][]string, 0, len(res.Volumes))
	for _, v := range res.Volumes {
		rows = append(rows, []string{
			strconv.Itoa(v.Line),
			v.Sender,
			v.Recipient,
			v.Number,
			strconv.Itoa(v.Expected),
			string(v.CountSource),
			orDash(v.Priority),
			v.MaterialType,
			v.Packaging,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Line", "Sender", "Recipient", "Volume", "Boxes", "Count", "Prior.", "Material", "Packaging"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	))
	fmt.Fprintf(w, "%d volumes, %d boxes\n", len(res.Volumes), res.TotalBoxes())
	printWarnings(cmd, res.Warnings)
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, warning := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
	}
}

func newManifestAddCommand(ctx *commandContext) *cobra.Command {
	var in store.NewManifest
	var dateFlag string
	cmd := &cobra.Command{
		Use:   "add <number>",
		Short: "Register a manifest by hand",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Number = args[0]
			if strings.TrimSpace(dateFlag) != "" {
				date, err := parseDate(dateFlag)
				if err != nil {
					return err
				}
				in.Date = &date
			}
			return ctx.withApp(cmd, func(a *app) error {
				m, err := a.service.RegisterManifest(cmd.Context(), in, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, m)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered manifest %s (id %d)\n", m.Number, m.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Scheduled date (YYYY-MM-DD or DD/MM/YYYY)")
	cmd.Flags().StringVar(&in.Origin, "origin", "", "Origin terminal")
	cmd.Flags().StringVar(&in.Destination, "destination", "", "Destination terminal")
	cmd.Flags().StringVar(&in.Mission, "mission", "", "Mission code")
	cmd.Flags().StringVar(&in.Aircraft, "aircraft", "", "Aircraft")
	return cmd
}

func newManifestListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag, fromFlag, toFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List manifests with their box counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildManifestFilter(statusFlag, fromFlag, toFlag)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app) error {
				manifests, err := a.store.ListManifests(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSONList(cmd, manifests)
				}
				w := cmd.OutOrStdout()
				if len(manifests) == 0 {
					fmt.Fprintln(w, "No manifests")
					return nil
				}
				colorize := shouldColorize(w)
				rows := make([][]string, 0, len(manifests))
				for _, m := range manifests {
					rows = append(rows, []string{
						strconv.FormatInt(m.ID, 10),
						m.Number,
						formatDate(m.Date),
						fmt.Sprintf("%s -> %s", orDash(m.Origin), orDash(m.Destination)),
						strconv.Itoa(m.VolumeCount),
						fmt.Sprintf("%d/%d", m.ReceivedBoxes, m.ExpectedBoxes),
						statusText(string(m.Status), colorize),
					})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"ID", "Number", "Date", "Route", "Volumes", "Boxes", "Status"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (NOT_RECEIVED, PARTIALLY_RECEIVED, FULLY_RECEIVED)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Earliest manifest date")
	cmd.Flags().StringVar(&toFlag, "to", "", "Latest manifest date")
	return cmd
}

func buildManifestFilter(status, from, to string) (store.ManifestFilter, error) {
	var filter store.ManifestFilter
	if strings.TrimSpace(status) != "" {
		parsed, ok := store.ParseManifestStatus(status)
		if !ok {
			return filter, fmt.Errorf("unknown manifest status %q", status)
		}
		filter.Status = parsed
	}
	if strings.TrimSpace(from) != "" {
		date, err := parseDate(from)
		if err != nil {
			return filter, err
		}
		filter.DateFrom = &date
	}
	if strings.TrimSpace(to) != "" {
		date, err := parseDate(to)
		if err != nil {
			return filter, err
		}
		filter.DateTo = &date
	}
	return filter, nil
}

func newManifestShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <manifest>",
		Short: "Show a manifest and its volumes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				volumes, err := a.store.ListVolumes(cmd.Context(), m.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, struct {
						Manifest *store.Manifest
						Volumes  []store.Volume
					}{m, volumes})
				}
				w := cmd.OutOrStdout()
				colorize := shouldColorize(w)
				fmt.Fprintf(w, "Manifest %s (id %d)\n", m.Number, m.ID)
				fmt.Fprintf(w, "Date: %s\n", orDash(formatDate(m.Date)))
				fmt.Fprintf(w, "Route: %s -> %s\n", orDash(m.Origin), orDash(m.Destination))
				fmt.Fprintf(w, "Mission: %s  Aircraft: %s\n", orDash(m.Mission), orDash(m.Aircraft))
				fmt.Fprintf(w, "Status: %s\n", statusText(string(m.Status), colorize))
				if m.SourceRef != "" {
					fmt.Fprintf(w, "Source: %s\n", m.SourceRef)
				}
				if m.WindowStart != nil {
					fmt.Fprintf(w, "Receiving window: %s -> %s (%s)\n",
						formatTime(m.WindowStart), orDash(formatTime(m.WindowEnd)), orDash(m.Operator))
				}
				fmt.Fprintln(w, renderVolumes(volumes, colorize))
				return nil
			})
		},
	}
}

func newManifestDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <manifest>",
		Short: "Delete a manifest with its volumes, boxes and log (asks for the admin secret)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Admin.SecretHash) == "" {
				return auth.ErrSecretNotConfigured
			}
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				secret, err := readSecret(cmd, fmt.Sprintf("Admin secret to delete manifest %s: ", m.Number))
				if err != nil {
					return err
				}
				if err := auth.CheckSecret(cfg.Admin.SecretHash, secret); err != nil {
					return err
				}
				if err := a.service.DeleteManifest(cmd.Context(), m.ID, ctx.operator()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted manifest %s\n", m.Number)
				return nil
			})
		},
	}
}

var dateLayouts = []string{store.DateLayout, "02/01/2006"}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("date must be YYYY-MM-DD or DD/MM/YYYY: " + value)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(store.DateLayout)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
