package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dropzone",
		Short: "Drop zone CLI - upload documents to a channel",
		Long: `Drop zone Command Line Interface

Plays the host application for the drop zone: supplies the channel context
and auth token, then drops local files onto the zone and reports the result.

Configuration is read from DROPZONE_* environment variables and an optional
config file.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("upload-url", "", "upload endpoint (default https://<hostname>/api/upload)")

	rootCmd.AddCommand(NewDropCommand())
	rootCmd.AddCommand(NewTokenCommand())

	return rootCmd
}
