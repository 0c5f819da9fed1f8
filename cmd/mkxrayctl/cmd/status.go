package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mkxray-web status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp protocol.StatusResponse
			if err := apiGet("/api/v1/status", &resp); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status:       %s\n", resp.Status)
			fmt.Fprintf(out, "Uptime:       %s\n", resp.Uptime)
			fmt.Fprintf(out, "NATS Running: %v\n", resp.NATSRunning)
			fmt.Fprintf(out, "Started At:   %s\n", resp.StartedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Commands:     %d\n", resp.CommandsGenerated)
			for _, arch := range slices.Sorted(maps.Keys(resp.ByArch)) {
				fmt.Fprintf(out, "  %-10s  %d\n", arch, resp.ByArch[arch])
			}
			return nil
		},
	}
}
