package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCypherCmd(opts *rootOptions) *cobra.Command {
	var write bool
	var paramsJSON string
	cmd := &cobra.Command{
		Use:   "cypher <query>",
		Short: "Run an ad-hoc Cypher query and print the rows as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := opts.logger()

			params := map[string]any{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}

			client, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer client.Close(ctx) //nolint:errcheck

			run := client.Read
			if write {
				run = client.Write
			}
			result, err := run(ctx, args[0], params)
			if err != nil {
				return err
			}
			logger.Debug("query executed",
				"rows", len(result.Records),
				"time", result.Summary.ExecutionTime)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, rec := range result.Records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "run in a write transaction")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "query parameters as a JSON object")
	return cmd
}
