package main

import (
	"os"

	"github.com/rmksrv/mkxray-web/cmd/mkxrayctl/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
