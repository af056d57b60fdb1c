package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alchemydao/alchemist/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal <path>",
	Short: "Inspect a recorded event journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := journal.ReadFile(args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%6d  %-28s %d bytes\n", e.Seq, e.Name, len(e.Data))
		}
		fmt.Printf("%d events\n", len(entries))
		return nil
	},
}
