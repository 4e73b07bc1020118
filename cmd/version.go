package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Duongo16/vtm-apidocs/internal/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version())
			if verbose {
				fmt.Fprintln(cmd.OutOrStdout(), version.UserAgent())
			}
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Also print the HTTP user agent")
	return cmd
}
