// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"seedfast/forcebridge/internal/remote"

	"github.com/spf13/cobra"
)

// loginCmd replaces the cached session of a connection with a fresh one.
var loginCmd = &cobra.Command{
	Use:   "login <name>",
	Short: "Force a fresh session for a connection",
	Long: `The login command drops the cached session of a connection and logs in again.
Sessions are otherwise reused for the cache TTL (one hour by default) and
renewed automatically when the remote API reports them expired.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		conn, cc, err := a.connect(args[0])
		if err != nil {
			return err
		}
		var sess remote.Session
		err = withSpinner("logging in", func() error {
			sess, err = conn.Relogin(ctx)
			return err
		})
		if err != nil {
			return fail(err, "logging in", cc)
		}
		fmt.Printf("✅ Logged in to %s as %s\n", sess.InstanceURL, cc.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
