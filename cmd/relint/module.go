package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	moduleFormat  string
	moduleRefresh bool
)

var moduleCmd = &cobra.Command{
	Use:   "module <name>",
	Short: "Analyze a whole module",
	Long: `Analyze every file of a framework module: its sources, the data files its
manifest registers and its view descriptions.

Examples:
  relint module sale
  relint module --refresh sale
  relint module --format json library`,
	Args: cobra.ExactArgs(1),
	Run:  runModule,
}

func init() {
	moduleCmd.Flags().StringVar(&moduleFormat, "format", "human", "Output format (json, human)")
	moduleCmd.Flags().BoolVar(&moduleRefresh, "refresh", false, "Rebuild the module index before analyzing")
	rootCmd.AddCommand(moduleCmd)
}

func runModule(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := mustGetConfig()
	logger := newLogger(cfg, moduleFormat)
	eng := mustGetEngine(cfg, logger)
	defer eng.Close()

	if moduleRefresh {
		eng.RefreshModule(args[0])
	}
	diags, err := eng.GenerateModuleDiagnostics(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing module %s: %v\n", args[0], err)
		os.Exit(1)
	}

	printDiagnostics(diags, moduleFormat)

	logger.Debug("Module analysis completed", map[string]interface{}{
		"module":      args[0],
		"diagnostics": len(diags),
		"duration":    time.Since(start).Milliseconds(),
	})
	if hasErrors(diags) {
		os.Exit(1)
	}
}
