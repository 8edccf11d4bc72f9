// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"seedfast/forcebridge/internal/config"
	"seedfast/forcebridge/internal/schema"

	"github.com/spf13/cobra"
)

var cacheConnection string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the schema cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [object]",
	Short: "Drop cached object descriptions",
	Long: `The clear command drops cached describe results so the next statement fetches
them again. Without an object every cached description is dropped. The
command applies to every configured connection unless --connection is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		conns := a.cfg.Connections
		if cacheConnection != "" {
			cc, err := a.cfg.Connection(cacheConnection)
			if err != nil {
				return err
			}
			conns = []config.Connection{cc}
		}
		for _, cc := range conns {
			schemas := schema.New(a.store, schemaNamespace(cc.Name), a.log)
			if len(args) == 1 {
				err = schemas.Invalidate(ctx, args[0])
			} else {
				err = schemas.Clear(ctx)
			}
			if err != nil {
				return err
			}
		}
		what := "all objects"
		if len(args) == 1 {
			what = args[0]
		}
		fmt.Printf("✅ Schema cache cleared for %s (%d connection(s))\n", what, len(conns))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().StringVarP(&cacheConnection, "connection", "c", "", "Only clear the cache of this connection")
}
