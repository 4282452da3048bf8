package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	graphmodel "github.com/savasp/graphmodel-go"
	"github.com/savasp/graphmodel-go/graph"
)

type rootOptions struct {
	configPath string
	uri        string
	username   string
	password   string
	database   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "graphmodel",
		Short:         "Operational CLI for a graphmodel store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.uri, "uri", "", "store URI (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.username, "username", "", "store username (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "", "store password (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.database, "database", "", "database name (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newHealthCmd(opts))
	cmd.AddCommand(newCypherCmd(opts))
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *rootOptions) config() (graphmodel.GraphConfig, error) {
	cfg := graphmodel.DefaultConfig()
	if o.configPath != "" {
		loaded, err := graphmodel.LoadConfig(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if o.uri != "" {
		cfg.URI = o.uri
	}
	if o.username != "" {
		cfg.Username = o.username
	}
	if o.password != "" {
		cfg.Password = o.password
	}
	if o.database != "" {
		cfg.Database = o.database
	}
	return cfg, cfg.Validate()
}

// connect builds a client from the effective config and connects it.
// The caller closes it.
func (o *rootOptions) connect(ctx context.Context) (*graph.Neo4jClient, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	client, err := graph.NewNeo4jClient(cfg.ClientConfig())
	if err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}
	return client, nil
}
