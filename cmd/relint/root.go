package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"relint/internal/config"
	"relint/internal/engine"
	"relint/internal/introspect"
	"relint/internal/logging"
	"relint/internal/registry"
	"relint/internal/version"
)

var (
	// rootDirFlag is the CLI --root flag value
	rootDirFlag string
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "relint",
	Short: "relint - framework-aware static analyzer",
	Long: `relint analyzes the source, declarative-data and view-description files of
registry-driven framework modules. It resolves model schemas through a live
introspection worker (or a precomputed snapshot) and reports registration,
override-chain, dependency-declaration and data-consistency problems.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("relint version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", ".",
		"Workspace root holding the .relint directory")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")
}

// newLogger builds the command logger from the config and flags.
func newLogger(cfg *config.Config, format string) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.New(logging.Options{
		Level:  logging.ParseLevel(level),
		Format: logging.Format(format),
	})
}

// mustGetConfig loads and validates the configuration or exits.
func mustGetConfig() *config.Config {
	cfg, err := config.LoadConfig(rootDirFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// mustGetEngine wires the configured schema source into an analysis engine.
func mustGetEngine(cfg *config.Config, logger *logging.Logger) *engine.Engine {
	spawn := func() (introspect.Introspector, error) {
		if cfg.Snapshot.Path != "" {
			return introspect.LoadSnapshot(cfg.Snapshot.Path)
		}
		return introspect.SpawnWorker(cfg.Worker.Command, cfg.Worker.Args...)
	}
	mgr := registry.NewManager(spawn, logger)
	return engine.New(mgr, logger)
}
