// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pysling.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "pysling",
		Short: "Sling Python fragments into out-of-process runs",
		Long: TitleStyle.Render("pysling") + SubtitleStyle.Render(" - sling Python fragments into out-of-process runs") + `

pysling validates a user-authored Python fragment (a postcondition
check or task body), assembles it into one self-contained program,
places it where the target process can see it, runs it, and relays
the single JSON outcome document plus the subprocess exit code.

Three execution-filesystem backends are supported: local (same
namespace), shared (one private temp directory), and volume (a
mounted volume with path translation, e.g. a container).

` + SubtitleStyle.Render("Examples:") + `
  pysling run check.py                  Run a fragment
  pysling run --check check.py          Run in check mode
  pysling run --fs shared check.py      Use the shared-directory backend
  pysling compose check.py              Print the composed program`,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/pysling/config.cue)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(composeCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}
