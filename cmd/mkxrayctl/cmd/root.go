package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rmksrv/mkxray-web/pkg/sockpath"
)

var (
	socketPath string

	// Version is set by the main package via ldflags.
	Version = "dev"
)

// NewRootCmd creates the root mkxrayctl command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mkxrayctl",
		Short:        "mkxray CLI: build install commands and query mkxray-web",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", sockpath.DefaultSocketPath(), "mkxray-web Unix socket path")

	rootCmd.AddCommand(newCommandCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newArchsCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newSecretsCmd())

	return rootCmd
}
