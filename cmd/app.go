// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"os"
	"strings"

	"seedfast/forcebridge/internal/cache"
	"seedfast/forcebridge/internal/config"
	"seedfast/forcebridge/internal/driver"
	"seedfast/forcebridge/internal/httperrors"
	"seedfast/forcebridge/internal/keychain"
	"seedfast/forcebridge/internal/logging"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/schema"
	"seedfast/forcebridge/internal/session"

	"github.com/pterm/pterm"
)

// app is the wiring shared by every command that talks to a connection.
type app struct {
	cfg      config.Config
	log      *pterm.Logger
	store    cache.Store
	sessions *session.Cache
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Load()
	}
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logging.New(level)

	opts, err := cfg.CacheOptions()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Debug("cache opened", log.Args("backend", opts.Backend, "ttl", opts.TTL.String()))
	return &app{
		cfg:      cfg,
		log:      log,
		store:    store,
		sessions: session.New(store, log),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing cache", a.log.Args("error", logging.Mask(err.Error())))
	}
}

// schemaNamespace keeps describe results of different orgs apart in one store.
func schemaNamespace(connection string) string {
	return session.Namespace + "/" + strings.ToLower(connection)
}

// connect resolves a configured connection, filling the password from the
// keychain when neither the file nor the environment supplied one.
func (a *app) connect(name string) (*driver.Connection, config.Connection, error) {
	cc, err := a.cfg.Connection(name)
	if err != nil {
		return nil, cc, err
	}
	if cc.Password == "" && cc.JWTKeyFile == "" {
		if km, err := keychain.GetManager(); err == nil {
			if pw, err := km.LoadPassword(cc.Name); err == nil {
				cc.Password = pw
			} else if !errors.Is(err, keychain.ErrNotFound) {
				a.log.Debug("keychain lookup failed", a.log.Args("connection", cc.Name, "error", err.Error()))
			}
		} else {
			a.log.Debug("keychain unavailable", a.log.Args("error", err.Error()))
		}
	}

	creds, err := cc.Credentials()
	if err != nil {
		return nil, cc, err
	}
	api, err := remote.New(creds, remote.Options{Timeout: a.cfg.HTTPTimeout, Logger: a.log})
	if err != nil {
		return nil, cc, err
	}
	policy := driver.DefaultAssignment
	if !cc.AssignmentRules() {
		policy = driver.NoAssignment
	}
	conn, err := driver.NewConnection(driver.Options{
		Name:       cc.Name,
		API:        api,
		Sessions:   a.sessions,
		Schemas:    schema.New(a.store, schemaNamespace(cc.Name), a.log),
		Objects:    cc.Objects,
		Assignment: policy,
		Logger:     a.log,
	})
	return conn, cc, err
}

// shownError marks an error the command already presented to the user.
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

func presented(err error) bool {
	var s shownError
	return errors.As(err, &s)
}

// fail presents err and returns it marked as shown.
func fail(err error, action string, cc config.Connection) error {
	if err == nil {
		return nil
	}
	httperrors.Present(err, action, httperrors.ExtractHostFromURL(cc.LoginURL))
	return shownError{err}
}
