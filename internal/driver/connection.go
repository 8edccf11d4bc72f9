// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package driver is the surface a query builder talks to: a Connection that
// prepares compiled statements, a Statement that executes them against the
// remote object API, and a forward-only Cursor over the result.
package driver

import (
	"context"
	"strings"
	"sync"

	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/logging"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/schema"
	"seedfast/forcebridge/internal/session"
	"seedfast/forcebridge/internal/statement"

	"github.com/pterm/pterm"
)

// Options wires a Connection to its collaborators.
type Options struct {
	// Name identifies the connection; it keys the session cache.
	Name     string
	API      remote.API
	Sessions *session.Cache
	Schemas  *schema.Cache
	// Objects is the allow-list of remote objects. Empty allows every object.
	Objects []string
	// Assignment decides when inserts ask for assignment rules. Nil means DefaultAssignment.
	Assignment AssignmentPolicy
	// PrimaryKey is the record id field. Empty means "Id".
	PrimaryKey string
	Logger     *pterm.Logger
}

// Connection is one configured remote account.
type Connection struct {
	name       string
	api        remote.API
	sessions   *session.Cache
	schemas    *schema.Cache
	allowed    map[string]bool
	policy     AssignmentPolicy
	primaryKey string
	log        *pterm.Logger

	mu      sync.Mutex
	lastIDs map[string]string
	lastID  string
}

// NewConnection validates opts and returns a ready connection.
func NewConnection(opts Options) (*Connection, error) {
	if strings.TrimSpace(opts.Name) == "" {
		return nil, ferr.New(ferr.Configuration, "connection name is required")
	}
	if opts.API == nil || opts.Sessions == nil {
		return nil, ferr.Newf(ferr.Configuration, "connection %s: remote API and session cache are required", opts.Name)
	}
	c := &Connection{
		name:       opts.Name,
		api:        opts.API,
		sessions:   opts.Sessions,
		schemas:    opts.Schemas,
		policy:     opts.Assignment,
		primaryKey: opts.PrimaryKey,
		log:        logging.OrNop(opts.Logger),
		lastIDs:    map[string]string{},
	}
	if c.policy == nil {
		c.policy = DefaultAssignment
	}
	if c.primaryKey == "" {
		c.primaryKey = statement.DefaultPrimaryKey
	}
	if len(opts.Objects) > 0 {
		c.allowed = make(map[string]bool, len(opts.Objects))
		for _, o := range opts.Objects {
			c.allowed[strings.ToLower(strings.TrimSpace(o))] = true
		}
	}
	return c, nil
}

// Name returns the connection name.
func (c *Connection) Name() string { return c.name }

// PrimaryKey returns the record id field.
func (c *Connection) PrimaryKey() string { return c.primaryKey }

// Prepare binds a compiled statement to this connection. Nothing is sent
// until Execute.
func (c *Connection) Prepare(compiled statement.Compiled) *Statement {
	return &Statement{conn: c, compiled: compiled}
}

// LastInsertID returns the id generated by the latest successful insert into
// object, or into any object when object is empty.
func (c *Connection) LastInsertID(object string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if object == "" {
		return c.lastID
	}
	return c.lastIDs[strings.ToLower(object)]
}

func (c *Connection) recordInsert(object, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastIDs[strings.ToLower(object)] = id
	c.lastID = id
}

// AutoAssign applies the connection's assignment policy to an insert of values.
func (c *Connection) AutoAssign(object string, values map[string]any) bool {
	return c.policy.AutoAssign(object, values)
}

// CheckObject rejects objects outside the configured allow-list.
func (c *Connection) CheckObject(object string) error {
	if c.allowed == nil {
		return nil
	}
	if object == "" {
		return ferr.Newf(ferr.Configuration, "connection %s: cannot determine the target object", c.name)
	}
	if !c.allowed[strings.ToLower(object)] {
		return ferr.Newf(ferr.Configuration, "connection %s: object %s is not in the allowed objects list", c.name, object)
	}
	return nil
}

// Session returns the cached session, logging in on a miss.
func (c *Connection) Session(ctx context.Context) (remote.Session, error) {
	return c.sessions.GetOrCreate(ctx, c.name, c.api.Login)
}

// Relogin drops the cached session and logs in again.
func (c *Connection) Relogin(ctx context.Context) (remote.Session, error) {
	if err := c.sessions.Invalidate(ctx, c.name); err != nil {
		c.log.Warn("could not drop cached session", c.log.Args("connection", c.name, "error", err.Error()))
	}
	return c.Session(ctx)
}

// withSession runs op with a session. When the remote side reports the
// session expired, the session is replaced and op runs once more.
func (c *Connection) withSession(ctx context.Context, op func(remote.Session) error) error {
	s, err := c.Session(ctx)
	if err != nil {
		return err
	}
	err = op(s)
	if err == nil || !remote.IsSessionExpired(err) {
		return err
	}

	c.log.Info("session expired, logging in again", c.log.Args("connection", c.name))
	s, err = c.Relogin(ctx)
	if err != nil {
		return err
	}
	return op(s)
}

// Describe returns the schema of object through the schema cache.
func (c *Connection) Describe(ctx context.Context, object string) (*schema.Descriptor, error) {
	if err := c.CheckObject(object); err != nil {
		return nil, err
	}
	if c.schemas == nil {
		return nil, ferr.Newf(ferr.Configuration, "connection %s: no schema cache configured", c.name)
	}
	return c.schemas.Describe(ctx, object, func(ctx context.Context, object string) (*remote.DescribeResult, error) {
		var out *remote.DescribeResult
		err := c.withSession(ctx, func(s remote.Session) error {
			var err error
			out, err = c.api.DescribeObject(ctx, s, object)
			return err
		})
		return out, err
	})
}

// Create sends records in one non-atomic collection call.
func (c *Connection) Create(ctx context.Context, records []remote.Record, opts remote.CallOptions) ([]remote.SaveResult, error) {
	var out []remote.SaveResult
	err := c.withSession(ctx, func(s remote.Session) error {
		var err error
		out, err = c.api.Create(ctx, s, records, opts)
		return err
	})
	return out, err
}

// Update sends records in one non-atomic collection call.
func (c *Connection) Update(ctx context.Context, records []remote.Record, opts remote.CallOptions) ([]remote.SaveResult, error) {
	var out []remote.SaveResult
	err := c.withSession(ctx, func(s remote.Session) error {
		var err error
		out, err = c.api.Update(ctx, s, records, opts)
		return err
	})
	return out, err
}

// Delete removes records by id in one non-atomic collection call.
func (c *Connection) Delete(ctx context.Context, ids []string, opts remote.CallOptions) ([]remote.SaveResult, error) {
	var out []remote.SaveResult
	err := c.withSession(ctx, func(s remote.Session) error {
		var err error
		out, err = c.api.Delete(ctx, s, ids, opts)
		return err
	})
	return out, err
}

// Retrieve reads records of object by id.
func (c *Connection) Retrieve(ctx context.Context, object string, ids, fields []string) ([]*remote.Record, error) {
	var out []*remote.Record
	err := c.withSession(ctx, func(s remote.Session) error {
		var err error
		out, err = c.api.Retrieve(ctx, s, object, ids, fields)
		return err
	})
	return out, err
}

// Query runs a query, including archived records when all is set.
func (c *Connection) Query(ctx context.Context, soql string, all bool) ([]remote.Record, error) {
	var out []remote.Record
	err := c.withSession(ctx, func(s remote.Session) error {
		var err error
		if all {
			out, err = c.api.QueryAll(ctx, s, soql)
		} else {
			out, err = c.api.Query(ctx, s, soql)
		}
		return err
	})
	return out, err
}
