// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"seedfast/forcebridge/internal/bulk"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var bulkFlags struct {
	file   string
	fields []string
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <name> <create|update|delete|read> <object>",
	Short: "Create, update, delete or read many records in one request",
	Long: `The bulk command sends every row of a YAML file in one non-atomic collection
request. Rows succeed or fail on their own and results are printed in file
order. The file is a list of field maps:

  - FirstName: Jane
    LastName: Doe
  - FirstName: John
    LastName: Roe

update rows must carry Id; delete and read rows need only Id (plain id strings
are accepted too). The remote API accepts at most 200 rows per request.`,
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"create", "update", "delete", "read"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		op := strings.ToLower(args[1])
		rows, err := readRows(bulkFlags.file)
		if err != nil {
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		conn, cc, err := a.connect(args[0])
		if err != nil {
			return err
		}
		tbl, err := bulk.NewTable(conn, args[2])
		if err != nil {
			return err
		}

		var results []bulk.Result
		err = withSpinner(fmt.Sprintf("%s %d %s record(s)", op, len(rows), tbl.Object()), func() error {
			var err error
			results, err = runBulk(ctx, tbl, op, rows, conn.PrimaryKey())
			return err
		})
		if err != nil {
			return fail(err, op+" "+tbl.Object(), cc)
		}
		return pterm.DefaultTable.WithHasHeader().WithData(bulkRows(results)).Render()
	},
}

func runBulk(ctx context.Context, tbl *bulk.Table, op string, rows []map[string]any, pk string) ([]bulk.Result, error) {
	switch op {
	case "create":
		recs := make([]*bulk.Record, len(rows))
		for i, row := range rows {
			rec, err := tbl.NewRecord(ctx, row)
			if err != nil {
				return nil, err
			}
			recs[i] = rec
		}
		return tbl.CreateMany(ctx, recs)
	case "update":
		recs := make([]*bulk.Record, len(rows))
		for i, row := range rows {
			id := rowID(row, pk)
			if id == "" {
				return nil, fmt.Errorf("row %d: %s is required for update", i+1, pk)
			}
			rec, err := tbl.NewRecord(ctx, map[string]any{pk: id})
			if err != nil {
				return nil, err
			}
			if err := tbl.Patch(ctx, rec, row); err != nil {
				return nil, err
			}
			recs[i] = rec
		}
		return tbl.UpdateMany(ctx, recs)
	case "delete", "read":
		ids := make([]string, len(rows))
		for i, row := range rows {
			if ids[i] = rowID(row, pk); ids[i] == "" {
				return nil, fmt.Errorf("row %d: %s is required for %s", i+1, pk, op)
			}
		}
		if op == "delete" {
			return tbl.DeleteMany(ctx, ids)
		}
		return tbl.ReadMany(ctx, ids, bulkFlags.fields)
	default:
		return nil, fmt.Errorf("unknown bulk operation %q (use create, update, delete or read)", op)
	}
}

// readRows loads a YAML list of field maps. Bare scalars become {"Id": value}.
func readRows(path string) ([]map[string]any, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	rows := make([]map[string]any, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case map[string]any:
			rows[i] = v
		case string, int:
			rows[i] = map[string]any{"Id": fmt.Sprint(v)}
		default:
			return nil, fmt.Errorf("%s: row %d is not a field map", path, i+1)
		}
	}
	return rows, nil
}

func rowID(row map[string]any, pk string) string {
	for k, v := range row {
		if strings.EqualFold(k, pk) && v != nil {
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

func bulkRows(results []bulk.Result) pterm.TableData {
	rows := pterm.TableData{{"#", "Id", "Status", "Code", "Field", "Message"}}
	for i, r := range results {
		id := r.GeneratedID
		if r.Record != nil && r.Record.ID() != "" {
			id = r.Record.ID()
		}
		if r.Rejected() {
			rows = append(rows, []string{strconv.Itoa(i + 1), id, "rejected", r.Err.Code, r.Err.Field, r.Err.Message})
			continue
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), id, "ok", "", "", ""})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(bulkCmd)
	bulkCmd.Flags().StringVarP(&bulkFlags.file, "file", "f", "", "YAML file with one entry per record")
	bulkCmd.Flags().StringSliceVar(&bulkFlags.fields, "fields", nil, "Fields to read (default: every selectable field)")
}
