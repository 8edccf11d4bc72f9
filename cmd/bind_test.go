// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"testing"

	"seedfast/forcebridge/internal/statement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		in   string
		want statement.Binding
	}{
		{"c0=Doe", statement.Binding{Placeholder: "c0", Value: "Doe", Type: statement.String}},
		{":c1=42:int", statement.Binding{Placeholder: "c1", Value: "42", Type: statement.Integer}},
		{"c2=true:bool", statement.Binding{Placeholder: "c2", Value: "true", Type: statement.Boolean}},
		{"c3=2024-01-02T10:00:00Z", statement.Binding{Placeholder: "c3", Value: "2024-01-02T10:00:00Z", Type: statement.String}},
		{"c4=2024-01-02T10:00:00Z:datetime", statement.Binding{Placeholder: "c4", Value: "2024-01-02T10:00:00Z", Type: statement.DateTime}},
		{"c5=", statement.Binding{Placeholder: "c5", Value: "", Type: statement.String}},
		{"c6=null", statement.Binding{Placeholder: "c6", Value: nil, Type: statement.String}},
		{"c7=a=b", statement.Binding{Placeholder: "c7", Value: "a=b", Type: statement.String}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBinding(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBinding_Invalid(t *testing.T) {
	for _, in := range []string{"novalue", "=x", " : =1"} {
		_, err := parseBinding(in)
		assert.Error(t, err, in)
	}
}

func TestCompile(t *testing.T) {
	c, err := compile(statement.KindUpdate, "UPDATE Contact SET Phone = :c0 WHERE Id = :c1", []string{"c0=", "c1=003A"})
	require.NoError(t, err)
	in, err := statement.Parse(c, "")
	require.NoError(t, err)
	up := in.(statement.Update)
	assert.Equal(t, []string{"Phone"}, up.FieldsToNull)
	assert.Equal(t, "003A", up.ID())

	_, err = compile(statement.KindSelect, "SELECT Id FROM Contact", []string{"bad"})
	assert.Error(t, err)
}

func TestSchemaNamespace(t *testing.T) {
	assert.Equal(t, "salesforce/prod", schemaNamespace("Prod"))
}
