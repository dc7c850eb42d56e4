package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newReceiveCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Mark boxes as received",
	}
	cmd.AddCommand(newReceiveBoxCommand(ctx))
	cmd.AddCommand(newReceiveVolumeCommand(ctx))
	cmd.AddCommand(newReceiveAllCommand(ctx))
	return cmd
}

// volumeArgs splits the positional arguments of the receive commands:
// <manifest> <sender> <digits> [rest...], or <manifest> [rest...] with
// --volume-id.
func volumeArgs(rest int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		want := 3 + rest
		if cmd.Flags().Changed("volume-id") {
			want = 1 + rest
		}
		if len(args) != want {
			return fmt.Errorf("accepts %d arg(s), received %d", want, len(args))
		}
		return nil
	}
}

// volumeRef returns the sender and digits arguments, or empty strings when
// --volume-id names the volume directly.
func volumeRef(cmd *cobra.Command, args []string, volumeID int64) (string, string, error) {
	if cmd.Flags().Changed("volume-id") {
		if volumeID <= 0 {
			return "", "", fmt.Errorf("--volume-id must be positive, got %d", volumeID)
		}
		return "", "", nil
	}
	return args[1], args[2], nil
}

func newReceiveBoxCommand(ctx *commandContext) *cobra.Command {
	var volumeID int64
	cmd := &cobra.Command{
		Use:   "box <manifest> <sender> <digits> <box-number>",
		Short: "Receive one box of a volume",
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, digits, err := volumeRef(cmd, args, volumeID)
			if err != nil {
				return err
			}
			boxNumber, err := strconv.Atoi(args[len(args)-1])
			if err != nil || boxNumber < 1 {
				return fmt.Errorf("box number %q must be a positive integer", args[len(args)-1])
			}
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				id, err := resolveVolume(cmd.Context(), a, m.ID, sender, digits, volumeID)
				if err != nil {
					return err
				}
				res, err := a.service.ReceiveBox(cmd.Context(), id, boxNumber, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, res)
				}
				w := cmd.OutOrStdout()
				if res.AlreadyReceived {
					fmt.Fprintf(w, "Box %d of volume %s was already received\n", boxNumber, res.Volume.Number)
					return nil
				}
				colorize := shouldColorize(w)
				fmt.Fprintf(w, "Received box %d of volume %s: %d/%d %s; manifest %s\n",
					boxNumber, res.Volume.Number, res.Volume.Received, res.Volume.Expected,
					statusText(string(res.Volume.Status), colorize),
					statusText(string(res.ManifestStatus), colorize))
				return nil
			})
		},
	}
	cmd.Args = volumeArgs(1)
	cmd.Flags().Int64Var(&volumeID, "volume-id", 0, "Volume ID instead of sender and digits")
	return cmd
}

func newReceiveVolumeCommand(ctx *commandContext) *cobra.Command {
	var volumeID int64
	var count int
	cmd := &cobra.Command{
		Use:   "volume <manifest> <sender> <digits>",
		Short: "Receive outstanding boxes of a volume, lowest numbers first",
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, digits, err := volumeRef(cmd, args, volumeID)
			if err != nil {
				return err
			}
			var countPtr *int
			if cmd.Flags().Changed("count") {
				countPtr = &count
			}
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				id, err := resolveVolume(cmd.Context(), a, m.ID, sender, digits, volumeID)
				if err != nil {
					return err
				}
				receipt, err := a.service.ReceiveVolume(cmd.Context(), id, countPtr, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, receipt)
				}
				w := cmd.OutOrStdout()
				colorize := shouldColorize(w)
				fmt.Fprintf(w, "Received %d boxes of volume %s: %d/%d %s; manifest %s\n",
					len(receipt.Received), receipt.Volume.Number, receipt.Volume.Received, receipt.Volume.Expected,
					statusText(string(receipt.Volume.Status), colorize),
					statusText(string(receipt.ManifestStatus), colorize))
				return nil
			})
		},
	}
	cmd.Args = volumeArgs(0)
	cmd.Flags().Int64Var(&volumeID, "volume-id", 0, "Volume ID instead of sender and digits")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of boxes to receive (default all outstanding)")
	return cmd
}

func newReceiveAllCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "all <manifest>",
		Short: "Receive every outstanding box of a manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				receipt, err := a.service.ReceiveManifest(cmd.Context(), m.ID, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, receipt)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Received %d boxes across %d volumes; manifest %s\n",
					receipt.Boxes, len(receipt.Volumes), statusText(string(receipt.Manifest.Status), shouldColorize(w)))
				return nil
			})
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Open and close the receiving window of a manifest",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "start <manifest>",
		Short: "Open the receiving window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				started, err := a.service.StartReconciliation(cmd.Context(), m.ID, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, started)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Receiving window for manifest %s opened by %s\n", started.Number, started.Operator)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "finish <manifest>",
		Short: "Recompute the manifest status and close the receiving window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				m, err := resolveManifest(cmd.Context(), a.store, args[0])
				if err != nil {
					return err
				}
				res, err := a.service.FinishReconciliation(cmd.Context(), m.ID, ctx.operator())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, res)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Manifest %s: %d/%d boxes, %s\n", res.Manifest.Number,
					res.Totals.Received, res.Totals.Expected, statusText(string(res.Manifest.Status), shouldColorize(w)))
				if !res.Complete {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d boxes are still outstanding\n", res.Totals.Expected-res.Totals.Received)
				}
				return nil
			})
		},
	})
	return cmd
}
