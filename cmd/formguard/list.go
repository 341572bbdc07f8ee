package main

import (
	"fmt"
	"io"

	"github.com/aretw0/formguard"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered entities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd, logger)
		if err != nil {
			return err
		}
		return runList(cmd.OutOrStdout(), eng)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(w io.Writer, eng *formguard.Engine) error {
	for _, name := range eng.Entities() {
		d, err := eng.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-24s %d fields", name, len(d.Fields))
		if n := len(d.Refinements); n > 0 {
			fmt.Fprintf(w, ", %d cross-field rules", n)
		}
		fmt.Fprintln(w)
	}
	return nil
}
