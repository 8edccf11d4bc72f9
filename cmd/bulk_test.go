// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"seedfast/forcebridge/internal/bulk"
	"seedfast/forcebridge/internal/driver"
	"seedfast/forcebridge/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rows.yaml")
	require.NoError(t, os.WriteFile(p, []byte("- FirstName: Jane\n  LastName: Doe\n- \"003000000000001\"\n"), 0o600))

	rows, err := readRows(p)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"FirstName": "Jane", "LastName": "Doe"},
		{"Id": "003000000000001"},
	}, rows)

	_, err = readRows("")
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- [1, 2]\n"), 0o600))
	_, err = readRows(bad)
	assert.Error(t, err)
}

func TestRowID(t *testing.T) {
	assert.Equal(t, "003A", rowID(map[string]any{"id": " 003A "}, "Id"))
	assert.Empty(t, rowID(map[string]any{"Name": "x"}, "Id"))
	assert.Empty(t, rowID(map[string]any{"Id": nil}, "Id"))
}

func TestBulkRows(t *testing.T) {
	results := []bulk.Result{
		{Result: driver.Result{AffectedCount: 1, GeneratedID: "003A"}},
		{Result: driver.Result{Err: &remote.Rejection{Code: "DUPLICATE_VALUE", Field: "Email", Message: "duplicate"}}},
	}
	rows := bulkRows(results)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "003A", "ok", "", "", ""}, rows[1])
	assert.Equal(t, []string{"2", "", "rejected", "DUPLICATE_VALUE", "Email", "duplicate"}, rows[2])
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "x", cell("x"))
	assert.Equal(t, "3", cell(float64(3)))
	assert.Equal(t, `{"Name":"Acme"}`, cell(map[string]any{"Name": "Acme"}))
}
