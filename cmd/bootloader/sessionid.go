package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/bootloader/session"
)

func newSessionIDCmd() *cobra.Command {
	var (
		count int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "session-id",
		Short: "Print fresh bridge session identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var src session.Source
			if seed != 0 {
				src = session.NewInsecureSource(seed)
			}
			for i := 0; i < count; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), session.GenerateID(src))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identities")
	cmd.Flags().Int64Var(&seed, "seed", 0, "deterministic seed (testing only)")
	return cmd
}
