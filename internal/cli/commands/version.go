package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand prints geoql's version.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print geoql's version",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "geoql v%s\n", version)
		},
	}
}
