package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"relint/internal/diag"
)

var (
	lintRanges []string
	lintStdin  bool
	lintFormat string
)

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Analyze one file",
	Long: `Analyze a source, declarative-data or view-description file and print its
diagnostics.

Use --range to restrict a source analysis to the definitions overlapping the
given line spans, the way an editor does after an edit. Use --stdin to
analyze an unsaved buffer in place of the on-disk content.

Examples:
  relint lint sale/invoice.py
  relint lint --range 120:140 sale/invoice.py
  relint lint --stdin sale/invoice.py < buffer.py`,
	Args: cobra.ExactArgs(1),
	Run:  runLint,
}

func init() {
	lintCmd.Flags().StringArrayVar(&lintRanges, "range", nil, "Line span to analyze, start:end (repeatable)")
	lintCmd.Flags().BoolVar(&lintStdin, "stdin", false, "Read the file content from standard input")
	lintCmd.Flags().StringVar(&lintFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) {
	start := time.Now()
	cfg := mustGetConfig()
	logger := newLogger(cfg, lintFormat)
	eng := mustGetEngine(cfg, logger)
	defer eng.Close()

	ranges, err := parseRanges(lintRanges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	var data []byte
	if lintStdin {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	diags, err := eng.GenerateDiagnostics(args[0], data, ranges)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing %s: %v\n", args[0], err)
		os.Exit(1)
	}

	printDiagnostics(diags, lintFormat)

	logger.Debug("Lint completed", map[string]interface{}{
		"path":        args[0],
		"diagnostics": len(diags),
		"duration":    time.Since(start).Milliseconds(),
	})
	if hasErrors(diags) {
		os.Exit(1)
	}
}

// parseRanges parses repeated start:end line spans.
func parseRanges(specs []string) ([]diag.Range, error) {
	var ranges []diag.Range
	for _, spec := range specs {
		first, second, found := strings.Cut(spec, ":")
		if !found {
			return nil, fmt.Errorf("invalid range %q, expected start:end", spec)
		}
		startLine, err := strconv.Atoi(first)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %v", spec, err)
		}
		endLine, err := strconv.Atoi(second)
		if err != nil {
			return nil, fmt.Errorf("invalid range %q: %v", spec, err)
		}
		if startLine < 1 || endLine < startLine {
			return nil, fmt.Errorf("invalid range %q", spec)
		}
		ranges = append(ranges, diag.Range{
			Start: diag.Position{Line: startLine},
			End:   diag.Position{Line: endLine, Column: 999},
		})
	}
	return ranges, nil
}

func printDiagnostics(diags []diag.Diagnostic, format string) {
	if format == "json" {
		out, err := json.MarshalIndent(diags, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	for _, d := range diags {
		fmt.Println(d.String())
	}
}

func hasErrors(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == diag.Error {
			return true
		}
	}
	return false
}
