// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"

	"seedfast/forcebridge/internal/driver"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/statement"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var queryFlags struct {
	all   bool
	binds []string
	json  bool
}

var queryCmd = &cobra.Command{
	Use:   "query <name> <soql>",
	Short: "Run a SOQL query with bound parameters",
	Long: `The query command runs a SOQL SELECT. Placeholders (:c0, :name, ...) are
replaced with quoted literals from --bind name=value[:type]. --all includes
archived and deleted records.`,
	Example: `  forcebridge query prod "SELECT Id, LastName FROM Contact WHERE LastName = :c0" --bind c0=Doe`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		text := args[1]
		if queryFlags.all {
			text += statement.QueryAllSentinel
		}
		compiled, err := compile(statement.KindSelect, text, queryFlags.binds)
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

		st := conn.Prepare(compiled)
		if err := withSpinner("querying", func() error { return st.Execute(ctx) }); err != nil {
			return fail(err, "querying", cc)
		}
		defer st.CloseCursor()

		records := st.Result().Records
		if queryFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st.FetchAll(driver.FetchAssoc))
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No records.")
			return nil
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(queryRows(records[0], st)).Render(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d record(s)\n", st.RowCount())
		return nil
	},
}

// queryRows renders the cursor positionally under the first record's field names.
func queryRows(first remote.Record, st *driver.Statement) pterm.TableData {
	rows := pterm.TableData{first.Names()}
	for {
		row, ok := st.Fetch(driver.FetchNum)
		if !ok {
			return rows
		}
		values := row.([]any)
		line := make([]string, len(values))
		for i, v := range values {
			line[i] = cell(v)
		}
		rows = append(rows, line)
	}
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryFlags.all, "all", false, "Include archived and deleted records")
	queryCmd.Flags().StringArrayVar(&queryFlags.binds, "bind", nil, "Bind a placeholder: name=value[:type]")
	queryCmd.Flags().BoolVar(&queryFlags.json, "json", false, "Print records as JSON")
}
