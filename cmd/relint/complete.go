package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	completeStdin  bool
	completeFormat string
)

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <column>",
	Short: "Complete an attribute access",
	Long: `Return the completion items for the attribute access at the given position
(1-based line, 0-based column), ranked fields before methods.

Examples:
  relint complete sale/invoice.py 42 17
  relint complete --stdin sale/invoice.py 42 17 < buffer.py`,
	Args: cobra.ExactArgs(3),
	Run:  runComplete,
}

func init() {
	completeCmd.Flags().BoolVar(&completeStdin, "stdin", false, "Read the file content from standard input")
	completeCmd.Flags().StringVar(&completeFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) {
	cfg := mustGetConfig()
	logger := newLogger(cfg, completeFormat)
	eng := mustGetEngine(cfg, logger)
	defer eng.Close()

	line, err := strconv.Atoi(args[1])
	if err != nil || line < 1 {
		fmt.Fprintf(os.Stderr, "Error: invalid line %q\n", args[1])
		os.Exit(1)
	}
	col, err := strconv.Atoi(args[2])
	if err != nil || col < 0 {
		fmt.Fprintf(os.Stderr, "Error: invalid column %q\n", args[2])
		os.Exit(1)
	}
	var data []byte
	if completeStdin {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	items, err := eng.GenerateCompletions(args[0], data, line, col)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error completing %s: %v\n", args[0], err)
		os.Exit(1)
	}

	if completeFormat == "json" {
		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	for _, item := range items {
		if item.Detail != "" {
			fmt.Printf("%s\t%s\t%s\n", item.Label, item.Kind, item.Detail)
			continue
		}
		fmt.Printf("%s\t%s\n", item.Label, item.Kind)
	}
}
