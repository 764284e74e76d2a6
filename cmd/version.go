package cmd

import (
	"fmt"

	"github.com/metal-toolbox/netsync/internal/version"
	"github.com/spf13/cobra"
)

var cmdVersion = &cobra.Command{
	Use:   "version",
	Short: "Print netsync version along with dependency information.",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf(
			"commit: %s\nbranch: %s\ngit summary: %s\nbuildDate: %s\nversion: %s\nGo version: %s\nstateswitch version: %s\ngosnmp version: %s\n",
			version.GitCommit, version.GitBranch, version.GitSummary, version.BuildDate, version.AppVersion, version.GoVersion, version.StateswitchVersion, version.GosnmpVersion)
	},
}

func init() {
	rootCmd.AddCommand(cmdVersion)
}
