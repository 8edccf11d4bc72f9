// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package statement turns compiled query-builder output into remote-object intent.
//
// A query builder that normally targets a SQL database hands over a compiled
// statement string (INSERT / UPDATE / DELETE in SQL, or a SELECT whose body is
// already written in the remote query language) together with typed bound
// parameters. This package reconstructs what the statement means:
//   - which object it targets
//   - which fields get which literal values
//   - which fields must be cleared
//   - which record id a DELETE or UPDATE addresses
//
// It also owns the value coercer that renders bound parameters as the literal
// forms the remote API expects.
package statement

import (
	"fmt"
	"strings"
)

// SemanticType is the adapter's own value classification, independent of the
// remote wire type names.
type SemanticType string

const (
	Integer  SemanticType = "integer"
	Float    SemanticType = "float"
	Boolean  SemanticType = "boolean"
	DateTime SemanticType = "datetime"
	Date     SemanticType = "date"
	String   SemanticType = "string"
)

// ParseSemanticType maps a user-supplied type name onto a SemanticType.
// Unknown names are returned as-is so the coercer's generic branch handles them.
func ParseSemanticType(name string) SemanticType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "integer", "biginteger":
		return Integer
	case "float", "double", "decimal":
		return Float
	case "bool", "boolean":
		return Boolean
	case "datetime", "timestamp":
		return DateTime
	case "date":
		return Date
	case "", "string", "text":
		return String
	default:
		return SemanticType(strings.ToLower(strings.TrimSpace(name)))
	}
}

// Kind tags a compiled statement.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DetectKind guesses the kind from the statement's leading keyword.
// Query builders normally pass the kind explicitly; this exists for raw text
// entered on the command line.
func DetectKind(text string) (Kind, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return KindSelect, false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT":
		return KindSelect, true
	case "INSERT":
		return KindInsert, true
	case "UPDATE":
		return KindUpdate, true
	case "DELETE":
		return KindDelete, true
	}
	return KindSelect, false
}

// Binding is one bound parameter. Placeholder is stored without the leading colon.
type Binding struct {
	Placeholder string
	Value       any
	Type        SemanticType
}

// Compiled is the transient output of the query builder for one execution.
type Compiled struct {
	Kind     Kind
	Text     string
	Bindings []Binding
}

// Bind appends a binding and returns the statement for chaining.
func (c Compiled) Bind(placeholder string, value any, typ SemanticType) Compiled {
	c.Bindings = append(append([]Binding(nil), c.Bindings...), Binding{
		Placeholder: strings.TrimPrefix(placeholder, ":"),
		Value:       value,
		Type:        typ,
	})
	return c
}

// lookup resolves a placeholder (with or without colon) case-insensitively.
func (c Compiled) lookup(placeholder string) (Binding, bool) {
	name := strings.TrimPrefix(placeholder, ":")
	for _, b := range c.Bindings {
		if strings.EqualFold(strings.TrimPrefix(b.Placeholder, ":"), name) {
			return b, true
		}
	}
	return Binding{}, false
}
