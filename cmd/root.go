// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the forcebridge command-line interface. Commands run
// SQL-shaped statements against a remote object API through the driver
// package, manage stored credentials and inspect the schema cache.
package cmd

import (
	"fmt"
	"os"

	"seedfast/forcebridge/internal/httperrors"
	"seedfast/forcebridge/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "forcebridge",
	Short: "Run SQL-shaped statements against the Salesforce REST API",
	Long: `forcebridge translates INSERT, UPDATE, DELETE and SOQL SELECT statements with
bound parameters into Salesforce REST calls. Connections are configured in
$XDG_CONFIG_HOME/forcebridge/config.yaml; passwords live in the OS keychain or
in FORCEBRIDGE_PASSWORD_<NAME>.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !presented(err) {
			httperrors.Present(err, "running "+commandName(), "")
		}
		fmt.Fprintln(os.Stderr, logging.PresentError("Error", err))
		os.Exit(1)
	}
}

func commandName() string {
	c, _, err := rootCmd.Find(os.Args[1:])
	if err != nil || c == nil {
		return rootCmd.Name()
	}
	return c.CommandPath()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/forcebridge/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
