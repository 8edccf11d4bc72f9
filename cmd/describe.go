// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"strconv"

	"seedfast/forcebridge/internal/schema"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <name> <object>",
	Short: "Show the fields of a remote object and what each allows",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		conn, cc, err := a.connect(args[0])
		if err != nil {
			return err
		}
		var d *schema.Descriptor
		err = withSpinner("describing "+args[1], func() error {
			d, err = conn.Describe(ctx, args[1])
			return err
		})
		if err != nil {
			return fail(err, "describing "+args[1], cc)
		}
		pterm.DefaultSection.Println(d.Object)
		return pterm.DefaultTable.WithHasHeader().WithData(describeRows(d)).Render()
	},
}

func describeRows(d *schema.Descriptor) pterm.TableData {
	mark := func(b bool) string {
		if b {
			return "✓"
		}
		return ""
	}
	rows := pterm.TableData{{"Field", "Type", "Length", "Nullable", "Create", "Update"}}
	for _, name := range d.Order {
		f := d.Fields[name]
		length := ""
		if f.Length > 0 {
			length = strconv.Itoa(f.Length)
		}
		if name == d.PrimaryKey {
			name = fmt.Sprintf("%s (key)", name)
		}
		rows = append(rows, []string{name, string(f.Type), length, mark(f.Nullable), mark(f.Creatable), mark(f.Updatable)})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
