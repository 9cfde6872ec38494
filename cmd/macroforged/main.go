// Command macroforged serves the plugin packaging pipeline over MCP
// stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/macroforge/macroforge/install"
	"github.com/macroforge/macroforge/mcp"
	"github.com/macroforge/macroforge/registry"
	"github.com/macroforge/macroforge/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "macroforged",
		Short:         "Plugin security and packaging pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

func newServeCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "config file path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("staging-root", "", "directory assembled bundles are staged under")
	flags.String("default-target", "", "installation target used when a request names none")
	flags.String("registry", "memory", "registry backend (memory or bolt)")
	flags.String("registry-path", "", "database path for the bolt registry backend")
	flags.String("policy", "", "YAML installation policy file")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("MACROFORGE")
	v.AutomaticEnv()

	cmd.PreRunE = func(*cobra.Command, []string) error {
		if cfg := v.GetString("config"); cfg != "" {
			v.SetConfigFile(cfg)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
		}
		return nil
	}
	return cmd
}

func serve(ctx context.Context, v *viper.Viper) error {
	level, err := logrus.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)
	// Stdout carries the MCP stream; logs go to stderr.
	logger.SetOutput(os.Stderr)
	log := logrus.NewEntry(logger)

	store, err := openStore(v)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	policy := install.DefaultPolicy()
	if path := v.GetString("policy"); path != "" {
		policy, err = install.LoadPolicy(path)
		if err != nil {
			return err
		}
	}

	opts := []service.Option{
		service.WithPolicy(policy),
		service.WithLogger(log),
	}
	if dir := v.GetString("staging-root"); dir != "" {
		opts = append(opts, service.WithStagingRoot(dir))
	}
	if dir := v.GetString("default-target"); dir != "" {
		opts = append(opts, service.WithDefaultTarget(dir))
	}

	svc := service.New(store, opts...)
	server := mcp.NewServer(svc, mcp.WithLogger(log))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}

func openStore(v *viper.Viper) (registry.Store, error) {
	switch backend := v.GetString("registry"); backend {
	case "", "memory":
		return registry.NewInMemory(), nil
	case "bolt":
		path := v.GetString("registry-path")
		if path == "" {
			return nil, fmt.Errorf("registry-path is required for the bolt backend")
		}
		return registry.OpenBolt(path)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
}
