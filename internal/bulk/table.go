// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bulk batches record writes and reads for one remote object. Each
// call is a single non-atomic collection request: items succeed or fail on
// their own and results come back in input order.
package bulk

import (
	"context"
	"fmt"
	"strings"

	"seedfast/forcebridge/internal/driver"
	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/schema"
	"seedfast/forcebridge/internal/statement"
)

// Result is the outcome for one input item.
type Result struct {
	driver.Result
	Record *Record
}

// Table addresses one remote object through a connection.
type Table struct {
	conn       *driver.Connection
	object     string
	primaryKey string
}

// NewTable binds object to conn. The object must pass the connection's allow-list.
func NewTable(conn *driver.Connection, object string) (*Table, error) {
	if strings.TrimSpace(object) == "" {
		return nil, ferr.New(ferr.Configuration, "object name is required")
	}
	if err := conn.CheckObject(object); err != nil {
		return nil, err
	}
	return &Table{conn: conn, object: object, primaryKey: conn.PrimaryKey()}, nil
}

// Object returns the remote object name.
func (t *Table) Object() string { return t.object }

// Schema returns the object's descriptor through the connection's schema cache.
func (t *Table) Schema(ctx context.Context) (*schema.Descriptor, error) {
	return t.conn.Describe(ctx, t.object)
}

// NewRecord builds an unsaved record from data. Only creatable fields are
// kept, each converted to its field type; an empty primary key is skipped.
func (t *Table) NewRecord(ctx context.Context, data map[string]any) (*Record, error) {
	d, err := t.Schema(ctx)
	if err != nil {
		return nil, err
	}
	rec := newRecord(t.primaryKey)
	t.marshal(d, d.Creatable, data, rec.Set)
	return rec, nil
}

// Patch applies data to rec through the updatable fields.
func (t *Table) Patch(ctx context.Context, rec *Record, data map[string]any) error {
	d, err := t.Schema(ctx)
	if err != nil {
		return err
	}
	t.marshal(d, d.Updatable, data, rec.Set)
	return nil
}

// marshal walks the descriptor in field order and hands every allowed field
// present in data to set.
func (t *Table) marshal(d *schema.Descriptor, allowed map[string]schema.FieldDef, data map[string]any, set func(string, any)) {
	for _, name := range d.Order {
		def, ok := allowed[name]
		if !ok {
			continue
		}
		v, ok := lookup(data, name)
		if !ok {
			continue
		}
		if strings.EqualFold(name, t.primaryKey) && empty(v) {
			continue
		}
		if v == nil {
			set(name, nil)
			continue
		}
		set(name, statement.Literal(v, def.Type))
	}
}

func lookup(data map[string]any, name string) (any, bool) {
	if v, ok := data[name]; ok {
		return v, true
	}
	for k, v := range data {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// CreateMany inserts records. Empty values are not sent. Each success stores
// the generated id on its record and marks it clean.
func (t *Table) CreateMany(ctx context.Context, records []*Record) ([]Result, error) {
	if len(records) == 0 {
		return nil, nil
	}
	payload := make([]remote.Record, len(records))
	autoAssign := false
	for i, rec := range records {
		r := remote.NewRecord(t.object)
		for _, name := range rec.Dirty() {
			if v := rec.data[name]; !empty(v) {
				r.Set(name, v)
			}
		}
		payload[i] = r
		autoAssign = autoAssign || t.conn.AutoAssign(t.object, r.Fields)
	}

	saved, err := t.conn.Create(ctx, payload, remote.CallOptions{AutoAssign: autoAssign})
	if err != nil {
		return nil, err
	}
	return t.collect(records, saved, func(rec *Record, s remote.SaveResult) {
		rec.setID(s.ID)
		rec.clean()
	})
}

// UpdateMany sends the dirty fields of saved records. Empty values clear the
// field on the remote side.
func (t *Table) UpdateMany(ctx context.Context, records []*Record) ([]Result, error) {
	if len(records) == 0 {
		return nil, nil
	}
	payload := make([]remote.Record, len(records))
	for i, rec := range records {
		if rec.ID() == "" {
			return nil, ferr.Newf(ferr.UnsupportedStatement, "record %d has no %s", i, t.primaryKey)
		}
		r := remote.NewRecord(t.object)
		r.ID = rec.ID()
		for _, name := range rec.Dirty() {
			v := rec.data[name]
			if empty(v) {
				r.FieldsToNull = append(r.FieldsToNull, name)
				continue
			}
			r.Set(name, v)
		}
		payload[i] = r
	}

	saved, err := t.conn.Update(ctx, payload, remote.CallOptions{})
	if err != nil {
		return nil, err
	}
	return t.collect(records, saved, func(rec *Record, _ remote.SaveResult) { rec.clean() })
}

// DeleteMany removes records by id.
func (t *Table) DeleteMany(ctx context.Context, ids []string) ([]Result, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	saved, err := t.conn.Delete(ctx, ids, remote.CallOptions{})
	if err != nil {
		return nil, err
	}
	return t.collect(make([]*Record, len(ids)), saved, nil)
}

// collect pairs save results with their inputs by position.
func (t *Table) collect(records []*Record, saved []remote.SaveResult, onSuccess func(*Record, remote.SaveResult)) ([]Result, error) {
	if len(saved) != len(records) {
		return nil, ferr.Newf(ferr.ProtocolViolation, "%s: sent %d records, got %d results", t.object, len(records), len(saved))
	}
	out := make([]Result, len(records))
	for i, s := range saved {
		res, err := driver.Outcome(s, t.primaryKey)
		if err != nil {
			return nil, fmt.Errorf("%s result %d: %w", t.object, i, err)
		}
		if !res.Rejected() {
			res.GeneratedID = s.ID
			if onSuccess != nil && records[i] != nil {
				onSuccess(records[i], s)
			}
		}
		out[i] = Result{Result: res, Record: records[i]}
	}
	return out, nil
}

// ReadMany fetches records by id. fields defaults to every selectable field.
// An id the remote side does not know yields a NOT_FOUND rejection.
func (t *Table) ReadMany(ctx context.Context, ids, fields []string) ([]Result, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	d, err := t.Schema(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = d.SelectableNames()
	}

	rows, err := t.conn.Retrieve(ctx, t.object, ids, fields)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		return nil, ferr.Newf(ferr.ProtocolViolation, "%s: asked for %d records, got %d", t.object, len(ids), len(rows))
	}

	out := make([]Result, len(ids))
	for i, row := range rows {
		if row == nil {
			out[i] = Result{Result: driver.Result{Err: &remote.Rejection{
				Code:    "NOT_FOUND",
				Message: "record not found",
				Field:   t.primaryKey,
			}}}
			continue
		}
		rec := newRecord(t.primaryKey)
		t.marshal(d, d.Selectable, row.Fields, rec.put)
		if rec.ID() == "" {
			rec.setID(row.ID)
		}
		out[i] = Result{
			Result: driver.Result{AffectedCount: 1, Records: []remote.Record{*row}},
			Record: rec,
		}
	}
	return out, nil
}

// Save inserts an unsaved record or updates a saved one through the
// single-statement path. Nothing is sent when the record has no changes.
func (t *Table) Save(ctx context.Context, rec *Record) (driver.Result, error) {
	dirty := rec.Dirty()
	if len(dirty) == 0 {
		return driver.Result{}, nil
	}
	d, err := t.Schema(ctx)
	if err != nil {
		return driver.Result{}, err
	}

	compiled := statement.Compiled{}
	names := make([]string, len(dirty))
	for i, name := range dirty {
		names[i] = quoteIdent(name)
		typ := statement.String
		if def, ok := d.Field(name); ok {
			typ = def.Type
		}
		compiled = compiled.Bind(fmt.Sprintf("c%d", i), rec.data[name], typ)
	}

	insert := rec.ID() == ""
	if insert {
		compiled.Kind = statement.KindInsert
		placeholders := make([]string, len(dirty))
		for i := range dirty {
			placeholders[i] = fmt.Sprintf(":c%d", i)
		}
		compiled.Text = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(t.object), strings.Join(names, ", "), strings.Join(placeholders, ", "))
	} else {
		compiled.Kind = statement.KindUpdate
		sets := make([]string, len(dirty))
		for i, n := range names {
			sets[i] = fmt.Sprintf("%s = :c%d", n, i)
		}
		key := fmt.Sprintf("c%d", len(dirty))
		compiled = compiled.Bind(key, rec.ID(), statement.String)
		compiled.Text = fmt.Sprintf("UPDATE %s SET %s WHERE %s = :%s",
			quoteIdent(t.object), strings.Join(sets, " , "), quoteIdent(t.primaryKey), key)
	}

	st := t.conn.Prepare(compiled)
	if err := st.Execute(ctx); err != nil {
		return driver.Result{}, err
	}
	res := st.Result()
	if !res.Rejected() {
		if insert {
			rec.setID(res.GeneratedID)
		}
		rec.clean()
	}
	return res, nil
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}
