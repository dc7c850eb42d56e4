package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"manifestrecon/internal/deps"
	"manifestrecon/internal/store"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check manifest database health and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				resp, err := a.store.CheckHealth(cmd.Context())
				tools := deps.CheckBinaries(deps.Requirements(a.cfg))
				if err == nil {
					if missing := deps.MissingRequired(tools); len(missing) > 0 {
						err = fmt.Errorf("required tools missing: %s", strings.Join(missing, ", "))
					}
				}
				if ctx.JSONMode() {
					payload := struct {
						Database store.DatabaseHealth
						Tools    []deps.Status
					}{resp, tools}
					if jsonErr := writeJSON(cmd, payload); jsonErr != nil {
						return jsonErr
					}
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
				fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
				fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
				fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
				fmt.Fprintf(out, "Journal mode: %s\n", resp.JournalMode)
				if len(resp.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing tables: %s\n", strings.Join(resp.MissingTables, ", "))
				} else {
					fmt.Fprintln(out, "Missing tables: none")
				}
				fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
				fmt.Fprintf(out, "Manifests: %d  Volumes: %d  Boxes: %d  Log entries: %d\n",
					resp.Manifests, resp.Volumes, resp.Boxes, resp.LogEntries)
				for _, tool := range tools {
					state := "available"
					if !tool.Available {
						state = "missing"
						if tool.Optional {
							state = "missing (optional)"
						}
					}
					fmt.Fprintf(out, "%s: %s (%s)\n", tool.Name, state, tool.Detail)
				}
				if resp.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", resp.Error)
				}
				return err
			})
		},
	}
}
