// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pysling/internal/execfs"
)

// composeCmd prints the composed program without running it, as a
// debugging aid. The same-namespace filesystem is forced so payload paths
// pass through untouched and no files are created.
var composeCmd = &cobra.Command{
	Use:   "compose <fragment-file>",
	Short: "Print the composed program without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := buildRunner(cmd, args[0])
		if err != nil {
			return formatError(err)
		}
		r.FS = execfs.NewLocalFilesystem("")

		text, err := r.ComposeProgram()
		if err != nil {
			return formatError(err)
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	addFragmentFlags(composeCmd)
}
