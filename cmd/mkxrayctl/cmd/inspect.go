package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rmksrv/mkxray-web/internal/installcmd"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <command>",
		Short: "Show the address an install command actually passes to mkxray",
		Long: `Parses an install command the way bash would and prints the -addr value
mkxray receives. Fails when the address escapes its quoting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := installcmd.Inspect(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dest, ok := report.Dest(); ok {
				fmt.Fprintf(out, "Addr:   %s\n", dest)
			} else {
				fmt.Fprintln(out, "Addr:   (none)")
			}
			fmt.Fprintf(out, "Args:   %s\n", strings.Join(report.Args, " "))
			fmt.Fprintf(out, "Script: %s\n", report.Script)
			return nil
		},
	}
}
