package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose relint setup issues",
	Long: `Check the relint configuration and the availability of the configured schema
source: the snapshot file or the introspection worker executable.`,
	Run: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	failed := false
	report := func(name string, err error) {
		if err != nil {
			failed = true
			fmt.Printf("  [fail] %s: %v\n", name, err)
			return
		}
		fmt.Printf("  [ok]   %s\n", name)
	}

	fmt.Println("relint doctor")
	cfg := mustGetConfig()
	report("config", cfg.Validate())

	if cfg.Snapshot.Path != "" {
		_, err := os.Stat(cfg.Snapshot.Path)
		report("snapshot file", err)
	} else {
		_, err := exec.LookPath(cfg.Worker.Command)
		report("worker executable", err)
	}

	if failed {
		os.Exit(1)
	}
}
