package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/formguard"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of formguard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "formguard version %s\n", strings.TrimSpace(formguard.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
