package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmksrv/mkxray-web/internal/api"
	"github.com/rmksrv/mkxray-web/internal/installcmd"
	"github.com/rmksrv/mkxray-web/pkg/protocol"
)

func newCommandCmd() *cobra.Command {
	var (
		dest       string
		arch       string
		escapeDest bool
		local      bool
	)

	cmd := &cobra.Command{
		Use:   "command",
		Short: "Print the mkxray install command",
		Long: `Prints the one-line command that downloads the mkxray release for --arch
and starts it, passing --dest as -addr when set. The command is built by the
running mkxray-web daemon so it shows up in its activity feed; use --local to
build it without a daemon.

Examples:
  mkxrayctl command --local
  mkxrayctl command --dest www.samsung.com:443 --arch arm64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp protocol.InstallCommandResponse
			if local {
				res, err := installcmd.Describe(dest, arch, installcmd.Options{EscapeDest: escapeDest})
				if err != nil {
					return err
				}
				resp = api.ToResponse(res)
			} else {
				req := protocol.InstallCommandRequest{Dest: dest, Arch: arch, EscapeDest: escapeDest}
				if err := apiPost("/api/v1/install-command", req, &resp); err != nil {
					return err
				}
			}

			if resp.Warning != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", resp.Warning)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Command)
			return nil
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "address mkxray should mimic (e.g. www.samsung.com:443)")
	cmd.Flags().StringVar(&arch, "arch", installcmd.DefaultArch.String(), "target architecture (amd64 or arm64)")
	cmd.Flags().BoolVar(&escapeDest, "escape-dest", false, "shell-quote the address")
	cmd.Flags().BoolVar(&local, "local", false, "build the command without contacting mkxray-web")
	return cmd
}
