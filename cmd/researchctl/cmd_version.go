package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vishal27shetty/Company-Research-Agent/internal/buildconfig"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and commit",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "researchctl %s (%s)\n", buildconfig.Version(), buildconfig.Commit())
	},
}
