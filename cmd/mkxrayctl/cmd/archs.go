package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

func newArchsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archs",
		Short: "List supported architectures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp protocol.ArchsResponse
			if err := apiGet("/api/v1/archs", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, a := range resp.Archs {
				if a == resp.Default {
					fmt.Fprintf(out, "%s (default)\n", a)
				} else {
					fmt.Fprintln(out, a)
				}
			}
			return nil
		},
	}
}
