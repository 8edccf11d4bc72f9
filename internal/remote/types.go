// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Session is an authenticated handle on the remote API.
type Session struct {
	Token       string    `json:"sessionId"`
	InstanceURL string    `json:"serverUrl"`
	AcquiredAt  time.Time `json:"acquiredAt"`
}

// RemoteError is one entry of a per-record error list.
type RemoteError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields,omitempty"`
}

// SaveResult is the per-record outcome of a create, update or delete call.
type SaveResult struct {
	ID      string        `json:"id"`
	Success bool          `json:"success"`
	Errors  []RemoteError `json:"errors"`
}

// DescribeField is the wire description of one object field.
type DescribeField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	SoapType   string `json:"soapType"`
	Length     int    `json:"length"`
	Nillable   bool   `json:"nillable"`
	Createable bool   `json:"createable"`
	Updateable bool   `json:"updateable"`
}

// DescribeResult is the wire description of an object.
type DescribeResult struct {
	Name   string          `json:"name"`
	Label  string          `json:"label"`
	Fields []DescribeField `json:"fields"`
}

// Record is one remote object row. Field order is kept as received (or as set)
// so positional fetches line up with the query's select list.
type Record struct {
	Type         string
	ID           string
	Fields       map[string]any
	FieldsToNull []string
	order        []string
}

// NewRecord returns an empty record of the given object type.
func NewRecord(objectType string) Record {
	return Record{Type: objectType, Fields: map[string]any{}}
}

// Set assigns a field, remembering first-assignment order.
func (r *Record) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	if _, ok := r.Fields[name]; !ok {
		r.order = append(r.order, name)
	}
	r.Fields[name] = value
}

// Names returns field names in order. Fields added to the map directly (not via
// Set or decoding) follow in lexical order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.Fields))
	seen := make(map[string]bool, len(r.Fields))
	for _, n := range r.order {
		if _, ok := r.Fields[n]; ok && !seen[n] {
			names = append(names, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range r.Fields {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// MarshalJSON writes the request form of a record:
// attributes first, then Id when set, then fields in order, then explicit
// nulls for every field to clear.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"attributes":`)
	attrs, err := json.Marshal(map[string]string{"type": r.Type})
	if err != nil {
		return nil, err
	}
	buf.Write(attrs)

	write := func(name string, value any) error {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if r.ID != "" {
		if err := write("Id", r.ID); err != nil {
			return nil, err
		}
	}
	for _, name := range r.Names() {
		if name == "Id" && r.ID != "" {
			continue
		}
		if err := write(name, r.Fields[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range r.FieldsToNull {
		if err := write(name, nil); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a query or retrieve row. The "attributes" member supplies
// the type; every other member becomes a field in document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	*r = Record{Fields: map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if key == "attributes" {
			var attrs struct {
				Type string `json:"type"`
			}
			if err := dec.Decode(&attrs); err != nil {
				return fmt.Errorf("record attributes: %w", err)
			}
			r.Type = attrs.Type
			continue
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record field %s: %w", key, err)
		}
		if key == "Id" {
			if s, ok := v.(string); ok {
				r.ID = s
			}
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// QueryResult is one page of a query response.
type QueryResult struct {
	TotalSize      int             `json:"totalSize"`
	Done           bool            `json:"done"`
	NextRecordsURL string          `json:"nextRecordsUrl"`
	Records        json.RawMessage `json:"records"`
}

// CallOptions carries per-call headers.
type CallOptions struct {
	// AutoAssign asks the remote side to run its assignment rules on create.
	AutoAssign bool
	// AllOrNone rolls back the whole batch on any failure. The adapter always
	// sends false; the field exists so callers can see the choice.
	AllOrNone bool
}
