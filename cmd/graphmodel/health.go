package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx) //nolint:errcheck

			status := client.Health(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", status.State, status.Message)
			if !status.IsHealthy() {
				return fmt.Errorf("store is %s", status.State)
			}
			return nil
		},
	}
}
