package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"manifestrecon/internal/auth"
)

func newSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Admin secret utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "hash",
		Short:       "Hash an admin secret for admin.secret_hash",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := readSecret(cmd, "New admin secret: ")
			if err != nil {
				return err
			}
			hash, err := auth.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})
	return cmd
}
