// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"seedfast/forcebridge/internal/statement"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var execBinds []string

var execCmd = &cobra.Command{
	Use:   "exec <name> <statement>",
	Short: "Run an INSERT, UPDATE or DELETE with bound parameters",
	Long: `The exec command runs one single-record write:

  INSERT INTO <object> (<fields>) VALUES (<placeholders>)
  UPDATE <object> SET <field> = <placeholder>, ... WHERE Id = <placeholder>
  DELETE FROM <object> WHERE Id = <placeholder>

Empty values are left out of inserts and cleared on updates. A record the
remote side rejects is reported with its error code; it is not a failure of
the command.`,
	Example: `  forcebridge exec prod "INSERT INTO Contact (FirstName, LastName) VALUES (:c0, :c1)" --bind c0=Jane --bind c1=Doe`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kind, ok := statement.DetectKind(args[1])
		if !ok || kind == statement.KindSelect {
			return fmt.Errorf("exec runs INSERT, UPDATE or DELETE; use 'forcebridge query' for SELECT")
		}
		compiled, err := compile(kind, args[1], execBinds)
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

		object := compiled.Object()
		st := conn.Prepare(compiled)
		if err := withSpinner(fmt.Sprintf("%s %s", kind, object), func() error { return st.Execute(ctx) }); err != nil {
			return fail(err, fmt.Sprintf("running %s on %s", kind, object), cc)
		}

		if res := st.Result(); res.Rejected() {
			info := st.ErrorInfo()
			pterm.Warning.Printf("%s rejected: %s\n", object, info.Message)
			pterm.Printf("  code:  %s\n  field: %s\n", info.Code, info.Field)
			return nil
		}
		pterm.Success.Printf("%d row(s) affected\n", st.RowCount())
		if kind == statement.KindInsert {
			pterm.Printf("  id: %s\n", st.LastInsertID(object))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringArrayVar(&execBinds, "bind", nil, "Bind a placeholder: name=value[:type]")
}
