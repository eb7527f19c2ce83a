// Package cli implements pbctl, the operator command line for the page
// builder. It validates and compiles documents offline, inspects the type
// registry, issues API tokens and runs database maintenance.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pagebuilder/internal/registry"
)

// Version is set at build time.
var Version = "dev"

type rootOptions struct {
	registryFile string
	verbose      bool
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pbctl",
		Short: "Page builder operator tool",
		Long: `pbctl works with page-builder section trees and editor documents
without going through the HTTP API, and runs maintenance against the database.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	root.PersistentFlags().StringVar(&opts.registryFile, "registry", os.Getenv("REGISTRY_FILE"),
		"YAML catalog extending the built-in type registry")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newValidateCmd(opts),
		newCompileCmd(),
		newRegistryCmd(opts),
		newTokenCmd(),
		newUserCmd(),
		newMigrateCmd(),
		newCacheLogCmd(),
		newSnapshotCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func (o *rootOptions) loadRegistry() (*registry.Registry, error) {
	return registry.Load(o.registryFile)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
