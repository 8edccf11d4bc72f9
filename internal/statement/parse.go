// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package statement

import (
	"regexp"
	"strings"

	ferr "seedfast/forcebridge/internal/errors"

	"github.com/xwb1989/sqlparser"
)

// DefaultPrimaryKey is the remote API's record id field.
const DefaultPrimaryKey = "Id"

// QueryAllSentinel is the trailing token a query builder appends to ask for
// archived and soft-deleted records as well.
const QueryAllSentinel = " @queryAll"

var fromClause = regexp.MustCompile(`(?i)\bFROM\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Intent is the closed set of statement meanings: Insert, Update, Delete, Select.
type Intent interface {
	Kind() Kind
	// Target is the remote object the statement addresses ("" when unknown).
	Target() string
	intent()
}

// Insert creates one record. Values holds only non-empty fields.
type Insert struct {
	Object  string
	Columns []string
	Values  map[string]any
	Dropped []string
}

// Assignment is a single "field = :placeholder" pair after resolution.
type Assignment struct {
	Field       string
	Placeholder string
	Value       string
}

// Update modifies one record addressed by Condition.
// Columns lists every assignment in statement order with the condition field last.
type Update struct {
	Object       string
	Columns      []string
	Values       map[string]any
	FieldsToNull []string
	Condition    Assignment
}

// ID returns the targeted record id.
func (u Update) ID() string { return u.Condition.Value }

// Delete removes one record by primary key.
type Delete struct {
	Object      string
	Placeholder string
	ID          string
}

// Select is a remote-native query with every placeholder interpolated.
type Select struct {
	Object          string
	Query           string
	IncludeArchived bool
}

func (Insert) Kind() Kind { return KindInsert }

func (Update) Kind() Kind { return KindUpdate }

func (Delete) Kind() Kind { return KindDelete }

func (Select) Kind() Kind { return KindSelect }

func (i Insert) Target() string { return i.Object }

func (u Update) Target() string { return u.Object }

func (d Delete) Target() string { return d.Object }

func (s Select) Target() string { return s.Object }

func (Insert) intent() {}

func (Update) intent() {}

func (Delete) intent() {}

func (Select) intent() {}

// Parse reconstructs the intent of a compiled statement. primaryKey names the
// record id field; empty means DefaultPrimaryKey.
//
// INSERT, UPDATE and DELETE text is parsed with a full SQL grammar and any shape
// outside the supported subset fails with an UnsupportedStatement error.
func Parse(c Compiled, primaryKey string) (Intent, error) {
	if primaryKey == "" {
		primaryKey = DefaultPrimaryKey
	}
	switch c.Kind {
	case KindSelect:
		return parseSelect(c), nil
	case KindInsert:
		return parseInsert(c)
	case KindUpdate:
		return parseUpdate(c, primaryKey)
	case KindDelete:
		return parseDelete(c, primaryKey)
	default:
		return nil, ferr.Newf(ferr.UnsupportedStatement, "unknown statement kind %s", c.Kind)
	}
}

func parseSelect(c Compiled) Select {
	text := c.Text
	archived := false
	if strings.HasSuffix(text, QueryAllSentinel) {
		text = strings.TrimSuffix(text, QueryAllSentinel)
		archived = true
	}
	return Select{
		Object:          topLevelObject(text),
		Query:           Interpolate(text, c.Bindings),
		IncludeArchived: archived,
	}
}

var writeTarget = regexp.MustCompile(`(?i)^\s*(?:INSERT\s+INTO|UPDATE|DELETE\s+FROM)\s+` + "`?" + `([A-Za-z_][A-Za-z0-9_]*)`)

// Object returns the object the statement addresses without a full parse, or
// "" when it cannot be told from the text.
func (c Compiled) Object() string {
	if c.Kind == KindSelect {
		return topLevelObject(strings.TrimSuffix(c.Text, QueryAllSentinel))
	}
	if m := writeTarget.FindStringSubmatch(c.Text); m != nil {
		return m[1]
	}
	return ""
}

// topLevelObject returns the FROM object outside any parenthesised subquery.
func topLevelObject(text string) string {
	for _, m := range fromClause.FindAllStringSubmatchIndex(text, -1) {
		depth := strings.Count(text[:m[0]], "(") - strings.Count(text[:m[0]], ")")
		if depth == 0 {
			return text[m[2]:m[3]]
		}
	}
	return ""
}

var placeholder = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)\b`)

// Interpolate replaces every bound ":placeholder" (case-insensitive) with its
// quoted literal in one pass, so substituted values are never rescanned.
// Unbound placeholders are left as they are. The remote query language has no
// parameter markers.
func Interpolate(text string, bindings []Binding) string {
	c := Compiled{Bindings: bindings}
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		b, ok := c.lookup(m)
		if !ok {
			return m
		}
		return Format(b.Value, b.Type, true)
	})
}

const ident = "`?([A-Za-z_][A-Za-z0-9_]*)`?"

var (
	insertHead   = regexp.MustCompile(`(?is)^(\s*INSERT\s+INTO\s+)` + ident + `(\s*\()([^)]*)(\))`)
	writeHead    = regexp.MustCompile(`(?i)^(\s*(?:UPDATE|DELETE\s+FROM)\s+)` + ident)
	assignedName = regexp.MustCompile(`(^|[\s,(])` + ident + `(\s*=)`)
	bareName     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// quoteIdentifiers backquotes the target object, the insert column list and
// every name on the left of "=", so object and field names that collide with
// SQL keywords (Case, Order, Group) still parse. Text that does not have the
// expected head is returned unchanged and left for the grammar to reject.
func quoteIdentifiers(kind Kind, text string) string {
	switch kind {
	case KindInsert:
		m := insertHead.FindStringSubmatchIndex(text)
		if m == nil {
			return text
		}
		cols := strings.Split(text[m[8]:m[9]], ",")
		for i, col := range cols {
			name := strings.Trim(strings.TrimSpace(col), "`")
			if !bareName.MatchString(name) {
				return text
			}
			cols[i] = quote(name)
		}
		return text[:m[3]] + quote(text[m[4]:m[5]]) + text[m[6]:m[7]] +
			strings.Join(cols, ", ") + text[m[10]:]
	case KindUpdate, KindDelete:
		m := writeHead.FindStringSubmatchIndex(text)
		if m == nil {
			return text
		}
		rest := assignedName.ReplaceAllString(text[m[1]:], "$1`$2`$3")
		return text[m[2]:m[3]] + quote(text[m[4]:m[5]]) + rest
	}
	return text
}

func quote(name string) string { return "`" + name + "`" }

func parseInsert(c Compiled) (Intent, error) {
	stmt, err := sqlparser.Parse(quoteIdentifiers(KindInsert, c.Text))
	if err != nil {
		return nil, ferr.Wrap(ferr.UnsupportedStatement, "malformed insert statement", err)
	}
	ins, ok := stmt.(*sqlparser.Insert)
	if !ok || ins.Action != sqlparser.InsertStr || ins.Ignore != "" || len(ins.OnDup) > 0 {
		return nil, ferr.New(ferr.UnsupportedStatement, "expected INSERT INTO <object> (<fields>) VALUES (<placeholders>)")
	}
	rows, ok := ins.Rows.(sqlparser.Values)
	if !ok || len(rows) != 1 {
		return nil, ferr.New(ferr.UnsupportedStatement, "insert must carry exactly one VALUES row")
	}
	row := rows[0]
	if len(ins.Columns) == 0 || len(row) != len(ins.Columns) {
		return nil, ferr.Newf(ferr.UnsupportedStatement, "insert has %d fields but %d values", len(ins.Columns), len(row))
	}

	out := Insert{
		Object: ins.Table.Name.String(),
		Values: make(map[string]any, len(row)),
	}
	for i, col := range ins.Columns {
		field := col.String()
		b, err := c.resolve(row[i])
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, field)
		// absent and empty mean the same thing to the remote API
		if Format(b.Value, b.Type, false) == "" {
			out.Dropped = append(out.Dropped, field)
			continue
		}
		out.Values[field] = Literal(b.Value, b.Type)
	}
	return out, nil
}

func parseUpdate(c Compiled, primaryKey string) (Intent, error) {
	stmt, err := sqlparser.Parse(quoteIdentifiers(KindUpdate, c.Text))
	if err != nil {
		return nil, ferr.Wrap(ferr.UnsupportedStatement, "malformed update statement", err)
	}
	up, ok := stmt.(*sqlparser.Update)
	if !ok || len(up.OrderBy) > 0 || up.Limit != nil {
		return nil, ferr.New(ferr.UnsupportedStatement, "expected UPDATE <object> SET <assignments> WHERE <key> = <placeholder>")
	}
	object, err := singleTable(up.TableExprs)
	if err != nil {
		return nil, err
	}
	if len(up.Exprs) == 0 {
		return nil, ferr.New(ferr.UnsupportedStatement, "update has no assignments")
	}

	out := Update{
		Object: object,
		Values: make(map[string]any, len(up.Exprs)),
	}
	for _, expr := range up.Exprs {
		field := expr.Name.Name.String()
		b, err := c.resolve(expr.Expr)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, field)
		// "set to empty" has to be sent as an explicit null
		if Format(b.Value, b.Type, false) == "" {
			out.FieldsToNull = append(out.FieldsToNull, field)
			continue
		}
		out.Values[field] = Literal(b.Value, b.Type)
	}

	cond, err := c.keyPredicate(up.Where, primaryKey)
	if err != nil {
		return nil, ferr.Wrap(ferr.UnsupportedStatement, "update must target a single record by "+primaryKey, err)
	}
	if cond.Value == "" {
		return nil, ferr.Newf(ferr.UnsupportedStatement, "update condition %s resolved to an empty id", cond.Field)
	}
	out.Condition = cond
	out.Columns = append(out.Columns, cond.Field)
	return out, nil
}

func parseDelete(c Compiled, primaryKey string) (Intent, error) {
	unsupported := ferr.New(ferr.UnsupportedStatement, "only primary-key delete supported")
	if len(c.Bindings) != 1 {
		return nil, unsupported
	}
	stmt, err := sqlparser.Parse(quoteIdentifiers(KindDelete, c.Text))
	if err != nil {
		return nil, ferr.Wrap(ferr.UnsupportedStatement, "only primary-key delete supported", err)
	}
	del, ok := stmt.(*sqlparser.Delete)
	if !ok || len(del.Targets) > 0 || len(del.OrderBy) > 0 || del.Limit != nil {
		return nil, unsupported
	}
	object, err := singleTable(del.TableExprs)
	if err != nil {
		return nil, unsupported
	}
	cond, err := c.keyPredicate(del.Where, primaryKey)
	if err != nil || cond.Value == "" {
		return nil, unsupported
	}
	return Delete{Object: object, Placeholder: cond.Placeholder, ID: cond.Value}, nil
}

// keyPredicate accepts exactly "<primaryKey> = :placeholder".
func (c Compiled) keyPredicate(where *sqlparser.Where, primaryKey string) (Assignment, error) {
	if where == nil {
		return Assignment{}, ferr.New(ferr.UnsupportedStatement, "missing WHERE clause")
	}
	cmp, ok := where.Expr.(*sqlparser.ComparisonExpr)
	if !ok || cmp.Operator != sqlparser.EqualStr {
		return Assignment{}, ferr.New(ferr.UnsupportedStatement, "WHERE must be a single equality")
	}
	col, ok := cmp.Left.(*sqlparser.ColName)
	if !ok || !col.Name.EqualString(primaryKey) {
		return Assignment{}, ferr.Newf(ferr.UnsupportedStatement, "WHERE must compare %s", primaryKey)
	}
	b, err := c.resolve(cmp.Right)
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{
		Field:       col.Name.String(),
		Placeholder: b.Placeholder,
		Value:       Format(b.Value, b.Type, false),
	}, nil
}

// resolve maps a value expression to its binding; only placeholders are allowed.
func (c Compiled) resolve(expr sqlparser.Expr) (Binding, error) {
	v, ok := expr.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.ValArg {
		return Binding{}, ferr.Newf(ferr.UnsupportedStatement, "expected a placeholder, got %s", sqlparser.String(expr))
	}
	name := string(v.Val)
	b, ok := c.lookup(name)
	if !ok {
		return Binding{}, ferr.Newf(ferr.UnsupportedStatement, "unbound placeholder %s", name)
	}
	return b, nil
}

func singleTable(exprs sqlparser.TableExprs) (string, error) {
	if len(exprs) != 1 {
		return "", ferr.New(ferr.UnsupportedStatement, "statement must address exactly one object")
	}
	aliased, ok := exprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return "", ferr.New(ferr.UnsupportedStatement, "joins are not supported")
	}
	name, ok := aliased.Expr.(sqlparser.TableName)
	if !ok || name.Name.IsEmpty() {
		return "", ferr.New(ferr.UnsupportedStatement, "subqueries are not supported")
	}
	return name.Name.String(), nil
}
