// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package driver

import "seedfast/forcebridge/internal/remote"

// FetchMode selects the row shape a fetch returns.
type FetchMode int

const (
	// FetchAssoc returns map[string]any keyed by field name.
	FetchAssoc FetchMode = iota
	// FetchNum returns []any in field order.
	FetchNum
)

// Cursor is a forward-only reader over an execution result.
type Cursor struct {
	records  []remote.Record
	position int
}

func newCursor(records []remote.Record) *Cursor {
	return &Cursor{records: records}
}

// Fetch returns the next row, or (nil, false) once exhausted. An exhausted
// cursor stays exhausted and does not move.
func (c *Cursor) Fetch(mode FetchMode) (any, bool) {
	if c == nil || c.position >= len(c.records) {
		return nil, false
	}
	rec := c.records[c.position]
	c.position++
	if mode == FetchNum {
		return numRow(rec), true
	}
	return assocRow(rec), true
}

// FetchAll drains the cursor from the current position.
func (c *Cursor) FetchAll(mode FetchMode) []any {
	var out []any
	for {
		row, ok := c.Fetch(mode)
		if !ok {
			return out
		}
		out = append(out, row)
	}
}

// Position is the number of rows fetched so far.
func (c *Cursor) Position() int {
	if c == nil {
		return 0
	}
	return c.position
}

// Rewind restarts the cursor at the first row.
func (c *Cursor) Rewind() {
	if c != nil {
		c.position = 0
	}
}

// Close releases nothing; the result is already in memory.
func (c *Cursor) Close() error { return nil }

func assocRow(r remote.Record) map[string]any {
	row := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		row[k] = v
	}
	return row
}

func numRow(r remote.Record) []any {
	names := r.Names()
	row := make([]any, len(names))
	for i, n := range names {
		row[i] = r.Fields[n]
	}
	return row
}
