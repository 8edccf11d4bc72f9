// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"os"

	"seedfast/forcebridge/internal/config"
	"seedfast/forcebridge/internal/keychain"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/terminal"

	"github.com/spf13/cobra"
)

var connectFlags struct {
	username   string
	loginURL   string
	clientID   string
	apiVersion string
	noSave     bool
}

// connectCmd stores a connection password in the keychain and verifies it.
var connectCmd = &cobra.Command{
	Use:   "connect <name>",
	Short: "Store a connection password in the OS keychain and verify login",
	Long: `The connect command prompts for the password of a configured connection (the
security token may be appended or set in the config file), stores it in the OS
keychain and verifies it with a fresh login.

A connection that is not in the config file yet is added when --username and
--login-url are given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		cc, err := a.cfg.Connection(name)
		if err != nil {
			if connectFlags.username == "" || connectFlags.loginURL == "" {
				return err
			}
			cc = config.Connection{Name: name}
		}
		if connectFlags.username != "" {
			cc.Username = connectFlags.username
		}
		if connectFlags.loginURL != "" {
			cc.LoginURL = connectFlags.loginURL
		}
		if connectFlags.clientID != "" {
			cc.ClientID = connectFlags.clientID
		}
		if connectFlags.apiVersion != "" {
			cc.APIVersion = connectFlags.apiVersion
		}
		if err := cc.Validate(); err != nil {
			return err
		}

		password, err := terminal.ReadSecret(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Password for %s: ", cc.Username))
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("password is required")
		}
		cc.Password = password

		creds, err := cc.Credentials()
		if err != nil {
			return err
		}
		api, err := remote.New(creds, remote.Options{Timeout: a.cfg.HTTPTimeout, Logger: a.log})
		if err != nil {
			return err
		}
		var sess remote.Session
		err = withSpinner("verifying login", func() error {
			if err := a.sessions.Invalidate(ctx, cc.Name); err != nil {
				a.log.Debug("no cached session to drop", a.log.Args("connection", cc.Name))
			}
			sess, err = a.sessions.GetOrCreate(ctx, cc.Name, api.Login)
			return err
		})
		if err != nil {
			return fail(err, "verifying login", cc)
		}

		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			fmt.Printf("   Login verified but not saved. Set %s instead.\n", config.PasswordEnv(cc.Name))
			return err
		}
		if err := km.SavePassword(cc.Name, password); err != nil {
			fmt.Println("❌ Failed to save the password securely.")
			return err
		}

		if !connectFlags.noSave {
			if err := saveConnection(cc); err != nil {
				return err
			}
		}

		fmt.Printf("✅ Connection %s verified and saved (%s)\n", cc.Name, sess.InstanceURL)
		return nil
	},
}

// saveConnection upserts cc into the config file as stored on disk, so
// environment overrides are never written back.
func saveConnection(cc config.Connection) error {
	p := configPath
	if p == "" {
		var err error
		if p, err = config.Path(); err != nil {
			return err
		}
	}
	onDisk, err := config.LoadFile(p)
	if err != nil {
		return err
	}
	if prev, err := onDisk.Connection(cc.Name); err == nil {
		cc.Password = prev.Password
	} else {
		cc.Password = ""
	}
	onDisk.Upsert(cc)
	return config.SaveFile(p, onDisk)
}

func init() {
	rootCmd.AddCommand(connectCmd)
	connectCmd.Flags().StringVar(&connectFlags.username, "username", "", "Username for a new connection")
	connectCmd.Flags().StringVar(&connectFlags.loginURL, "login-url", "", "OAuth host, e.g. https://login.salesforce.com")
	connectCmd.Flags().StringVar(&connectFlags.clientID, "client-id", "", "Connected app consumer key")
	connectCmd.Flags().StringVar(&connectFlags.apiVersion, "api-version", "", "REST API version (default "+remote.DefaultAPIVersion+")")
	connectCmd.Flags().BoolVar(&connectFlags.noSave, "no-save", false, "Do not write the connection to the config file")
}
