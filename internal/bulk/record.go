// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package bulk

import "strings"

// Record is one row of a Table with change tracking. Fields set since the
// record was created, read or saved are dirty and are what a write sends.
type Record struct {
	primaryKey string
	data       map[string]any
	order      []string
	dirty      map[string]bool
}

func newRecord(primaryKey string) *Record {
	return &Record{
		primaryKey: primaryKey,
		data:       map[string]any{},
		dirty:      map[string]bool{},
	}
}

// ID returns the record id, "" for a record that was never saved.
func (r *Record) ID() string {
	s, _ := r.data[r.primaryKey].(string)
	return s
}

// Get returns a field value.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.data[name]
	return v, ok
}

// Set assigns a field and marks it dirty.
func (r *Record) Set(name string, value any) {
	r.put(name, value)
	r.dirty[name] = true
}

func (r *Record) put(name string, value any) {
	if _, ok := r.data[name]; !ok {
		r.order = append(r.order, name)
	}
	r.data[name] = value
}

// Fields lists every field in assignment order.
func (r *Record) Fields() []string {
	return append([]string(nil), r.order...)
}

// Dirty lists changed fields in assignment order, without the primary key.
func (r *Record) Dirty() []string {
	var out []string
	for _, n := range r.order {
		if r.dirty[n] && !strings.EqualFold(n, r.primaryKey) {
			out = append(out, n)
		}
	}
	return out
}

// IsDirty reports whether anything would be sent on save.
func (r *Record) IsDirty() bool { return len(r.Dirty()) > 0 }

// Data returns a copy of the field values.
func (r *Record) Data() map[string]any {
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

func (r *Record) setID(id string) {
	if id != "" {
		r.put(r.primaryKey, id)
	}
}

func (r *Record) clean() {
	r.dirty = map[string]bool{}
}

// empty reports the values the remote API treats as "no value".
func empty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}
