// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strings"

	"seedfast/forcebridge/internal/statement"
)

// knownTypes are the suffixes accepted after the last ':' of a --bind value.
var knownTypes = map[string]bool{
	"int": true, "integer": true, "biginteger": true,
	"float": true, "double": true, "decimal": true,
	"bool": true, "boolean": true,
	"datetime": true, "timestamp": true, "date": true,
	"string": true, "text": true,
}

// parseBinding reads "name=value[:type]". The suffix is a type only when it
// names one, so values containing colons (times, URLs) pass through intact.
// The literal value "null" binds nil.
func parseBinding(s string) (statement.Binding, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimPrefix(strings.TrimSpace(name), ":")
	if !ok || name == "" {
		return statement.Binding{}, fmt.Errorf("invalid --bind %q: expected name=value[:type]", s)
	}
	typ := statement.String
	if i := strings.LastIndex(value, ":"); i >= 0 && knownTypes[strings.ToLower(value[i+1:])] {
		typ = statement.ParseSemanticType(value[i+1:])
		value = value[:i]
	}
	b := statement.Binding{Placeholder: name, Value: value, Type: typ}
	if value == "null" {
		b.Value = nil
	}
	return b, nil
}

func compile(kind statement.Kind, text string, binds []string) (statement.Compiled, error) {
	c := statement.Compiled{Kind: kind, Text: text}
	for _, raw := range binds {
		b, err := parseBinding(raw)
		if err != nil {
			return c, err
		}
		c = c.Bind(b.Placeholder, b.Value, b.Type)
	}
	return c, nil
}
