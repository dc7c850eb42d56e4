package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout. HTML escaping
// is off so values such as "<redacted>" and "P&D" print as typed.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONList encodes items, printing [] rather than null when empty.
func writeJSONList[T any](cmd *cobra.Command, items []T) error {
	if items == nil {
		items = []T{}
	}
	return writeJSON(cmd, items)
}
