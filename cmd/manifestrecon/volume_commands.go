package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"manifestrecon/internal/lookup"
	"manifestrecon/internal/store"
)

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Register, list and find volumes",
	}
	cmd.AddCommand(newVolumeAddCommand(ctx, false))
	cmd.AddCommand(newVolumeAddCommand(ctx, true))
	cmd.AddCommand(newVolumeListCommand(ctx))
	cmd.AddCommand(newVolumeFindCommand(ctx))
	return cmd
}

func newVolumeAddCommand(ctx *commandContext, extra bool) *cobra.Command {
	var in store.NewVolume
	var weight, cubage float64
	use := "add <manifest> <sender> <volume-number> <boxes>"
	short := "Add a volume listed on the manifest"
	if extra {
		use = "extra <manifest> <sender> <volume-number> <boxes>"
		short = "Register a volume found on the aircraft but missing from the manifest; its boxes are received at once"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			boxes, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("box count %q is not a number", args[3])
			}
			in.Sender = args[1]
			in.Number = args[2]
			in.Expected = boxes
			if cmd.Flags().Changed("weight") {
				in.Weight = &weight
			}
			if cmd.Flags().Changed("cubage") {
				in.Cubage = &cubage
			}
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				in.ManifestID = m.ID
				if in.Recipient == "" {
					in.Recipient = a.cfg.Extraction.DestinationCode
				}
				register := a.service.RegisterVolume
				if extra {
					register = a.service.RegisterExtraVolume
				}
				v, err := register(cmd.Context(), in, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, v)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered volume %s (id %d) on manifest %s: %d boxes, %s\n",
					v.Number, v.ID, m.Number, v.Expected, v.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Recipient, "recipient", "", "Recipient code (default extraction.destination_code)")
	cmd.Flags().Float64Var(&weight, "weight", 0, "Weight in kg")
	cmd.Flags().Float64Var(&cubage, "cubage", 0, "Cubage in m³")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "Priority code")
	cmd.Flags().StringVar(&in.MaterialType, "material", "", "Material type")
	cmd.Flags().StringVar(&in.Packaging, "packaging", "", "Packaging")
	return cmd
}

func newVolumeListCommand(ctx *commandContext) *cobra.Command {
	var outstandingOnly bool
	cmd := &cobra.Command{
		Use:   "list <manifest>",
		Short: "List the volumes of a manifest",
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
				if outstandingOnly {
					filtered := volumes[:0]
					for _, v := range volumes {
						if v.Outstanding() > 0 {
							filtered = append(filtered, v)
						}
					}
					volumes = filtered
				}
				if ctx.JSONMode() {
					return writeJSONList(cmd, volumes)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, renderVolumes(volumes, shouldColorize(w)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&outstandingOnly, "outstanding", false, "Only volumes with boxes still expected")
	return cmd
}

func newVolumeFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <manifest> <sender> <digits>",
		Short: "Find volumes by sender and the trailing digits of their number",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				res, err := lookup.NewFinder(a.store).Find(cmd.Context(), m.ID, args[1], args[2])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, struct {
						Outcome    string
						Candidates []store.Volume
					}{res.Outcome().String(), res.Candidates})
				}
				w := cmd.OutOrStdout()
				switch res.Outcome() {
				case lookup.NotFound:
					fmt.Fprintf(w, "No volume from %s ends in %s\n", res.Sender, res.Suffix)
					return nil
				case lookup.Ambiguous:
					fmt.Fprintf(w, "%d volumes from %s end in %s; use --volume-id to pick one\n",
						len(res.Candidates), res.Sender, res.Suffix)
				}
				fmt.Fprintln(w, renderVolumes(res.Candidates, shouldColorize(w)))
				return nil
			})
		},
	}
}

// resolveVolume returns volumeID when set, otherwise the single volume the
// suffix search finds.
func resolveVolume(ctx context.Context, a *app, manifestID int64, sender, digits string, volumeID int64) (int64, error) {
	if volumeID > 0 {
		v, err := a.store.GetVolume(ctx, volumeID)
		if err != nil {
			return 0, err
		}
		if v.ManifestID != manifestID {
			return 0, fmt.Errorf("volume %d belongs to another manifest: %w", volumeID, errVolumeNotFound)
		}
		return v.ID, nil
	}
	res, err := lookup.NewFinder(a.store).Find(ctx, manifestID, sender, digits)
	if err != nil {
		return 0, err
	}
	switch res.Outcome() {
	case lookup.NotFound:
		return 0, fmt.Errorf("%s ending in %s: %w", res.Sender, res.Suffix, errVolumeNotFound)
	case lookup.Ambiguous:
		return 0, &ambiguousVolumeError{sender: res.Sender, suffix: res.Suffix, candidates: len(res.Candidates)}
	}
	v, _ := res.Volume()
	return v.ID, nil
}

func renderVolumes(volumes []store.Volume, colorize bool) string {
	rows := make([][]string, 0, len(volumes))
	for _, v := range volumes {
		rows = append(rows, []string{
			strconv.FormatInt(v.ID, 10),
			v.Sender,
			v.Number,
			lookup.TrailingDigits(v.Number, lookup.DigitsFor(v.Sender)),
			fmt.Sprintf("%d/%d", v.Received, v.Expected),
			orDash(v.Priority),
			statusText(string(v.Status), colorize),
		})
	}
	return renderTable(
		[]string{"ID", "Sender", "Volume", "Ref", "Boxes", "Prior.", "Status"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
