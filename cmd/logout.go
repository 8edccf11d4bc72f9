// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"seedfast/forcebridge/internal/keychain"

	"github.com/spf13/cobra"
)

var keepPassword bool

// logoutCmd forgets the cached session and stored password of a connection.
var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Drop the cached session and the stored password of a connection",
	Long: `The logout command removes:
- The cached session of the connection
- The password stored in the OS keychain (unless --keep-password)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		cc, err := a.cfg.Connection(args[0])
		if err != nil {
			return err
		}
		if err := a.sessions.Invalidate(ctx, cc.Name); err != nil {
			return err
		}
		if !keepPassword {
			// best effort: the keychain may be unavailable on this system
			if km, err := keychain.GetManager(); err == nil {
				if err := km.DeletePassword(cc.Name); err != nil {
					a.log.Warn("could not remove stored password", a.log.Args("connection", cc.Name, "error", err.Error()))
				}
			}
		}
		fmt.Printf("✅ Logged out of %s\n", cc.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
	logoutCmd.Flags().BoolVar(&keepPassword, "keep-password", false, "Keep the password in the OS keychain")
}
