// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package driver

import (
	"context"
	"errors"
	"sync"

	ferr "seedfast/forcebridge/internal/errors"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/statement"
)

// ErrAlreadyExecuted is returned by a second Execute on the same Statement.
var ErrAlreadyExecuted = errors.New("statement already executed")

// Result is the outcome of one execution.
type Result struct {
	// AffectedCount is 0 or 1 for writes and the number of records for reads.
	AffectedCount int
	Records       []remote.Record
	GeneratedID   string
	// Err is the business rejection, nil on success.
	Err *remote.Rejection
}

// Rejected reports whether the remote side refused the record.
func (r Result) Rejected() bool { return r.Err != nil }

type state int

const (
	stateIdle state = iota
	stateExecuting
	stateSucceeded
	stateFailed
)

// Statement executes one compiled statement, once.
type Statement struct {
	conn     *Connection
	compiled statement.Compiled

	mu     sync.Mutex
	state  state
	result Result
	cursor *Cursor
}

// Execute sends the statement. A business rejection is not an error: Execute
// returns nil and the rejection is available from ErrorCode, ErrorInfo and
// Result. Errors are reserved for unsupported statements, configuration,
// authentication, transport and protocol failures.
func (s *Statement) Execute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return ErrAlreadyExecuted
	}
	s.state = stateExecuting

	res, err := s.run(ctx)
	if err != nil {
		s.state = stateFailed
		s.cursor = newCursor(nil)
		return err
	}
	s.state = stateSucceeded
	s.result = res
	s.cursor = newCursor(res.Records)
	return nil
}

func (s *Statement) run(ctx context.Context) (Result, error) {
	c := s.conn
	intent, err := statement.Parse(s.compiled, c.primaryKey)
	if err != nil {
		return Result{}, err
	}
	if err := c.CheckObject(intent.Target()); err != nil {
		return Result{}, err
	}
	c.log.Debug("execute", c.log.Args("connection", c.name, "kind", intent.Kind().String(), "object", intent.Target()))

	switch in := intent.(type) {
	case statement.Insert:
		return s.insert(ctx, in)
	case statement.Update:
		return s.update(ctx, in)
	case statement.Delete:
		return s.delete(ctx, in)
	case statement.Select:
		records, err := c.Query(ctx, in.Query, in.IncludeArchived)
		if err != nil {
			return Result{}, err
		}
		return Result{AffectedCount: len(records), Records: records}, nil
	default:
		return Result{}, ferr.Newf(ferr.UnsupportedStatement, "unsupported statement %T", intent)
	}
}

func (s *Statement) insert(ctx context.Context, in statement.Insert) (Result, error) {
	c := s.conn
	rec := remote.NewRecord(in.Object)
	for _, col := range in.Columns {
		if v, ok := in.Values[col]; ok {
			rec.Set(col, v)
		}
	}
	opts := remote.CallOptions{AutoAssign: c.AutoAssign(in.Object, in.Values)}

	results, err := c.Create(ctx, []remote.Record{rec}, opts)
	if err != nil {
		return Result{}, err
	}
	res, err := s.single(results)
	if err != nil {
		return Result{}, err
	}
	if !res.Rejected() {
		res.GeneratedID = results[0].ID
		c.recordInsert(in.Object, res.GeneratedID)
	}
	return res, nil
}

func (s *Statement) update(ctx context.Context, in statement.Update) (Result, error) {
	c := s.conn
	rec := remote.NewRecord(in.Object)
	rec.ID = in.ID()
	for _, col := range in.Columns {
		if v, ok := in.Values[col]; ok {
			rec.Set(col, v)
		}
	}
	rec.FieldsToNull = in.FieldsToNull

	results, err := c.Update(ctx, []remote.Record{rec}, remote.CallOptions{})
	if err != nil {
		return Result{}, err
	}
	return s.single(results)
}

func (s *Statement) delete(ctx context.Context, in statement.Delete) (Result, error) {
	results, err := s.conn.Delete(ctx, []string{in.ID}, remote.CallOptions{})
	if err != nil {
		return Result{}, err
	}
	return s.single(results)
}

// single maps the one-entry result list of a write onto a Result.
func (s *Statement) single(results []remote.SaveResult) (Result, error) {
	if len(results) != 1 {
		return Result{}, ferr.Newf(ferr.ProtocolViolation, "expected exactly one result, got %d", len(results))
	}
	return Outcome(results[0], s.conn.primaryKey)
}

// Outcome maps one per-record save result onto a Result. A result that claims
// success and carries errors, or fails without any, is a protocol violation.
func Outcome(r remote.SaveResult, primaryKey string) (Result, error) {
	if r.Success && len(r.Errors) == 0 {
		return Result{AffectedCount: 1}, nil
	}
	if r.Success {
		return Result{}, ferr.New(ferr.ProtocolViolation, "result reports success together with errors")
	}
	if len(r.Errors) == 0 {
		return Result{}, ferr.New(ferr.ProtocolViolation, "result reports failure without errors")
	}
	rej := remote.Translate(r.Errors, primaryKey)
	return Result{AffectedCount: 0, Err: &rej}, nil
}

// Result returns the outcome of the last Execute.
func (s *Statement) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// RowCount is the affected count of the execution.
func (s *Statement) RowCount() int {
	return s.Result().AffectedCount
}

// Fetch returns the next row of the result.
func (s *Statement) Fetch(mode FetchMode) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Fetch(mode)
}

// FetchAll returns every remaining row of the result.
func (s *Statement) FetchAll(mode FetchMode) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.FetchAll(mode)
}

// ErrorCode is the rejection code, "00000" when there was none.
func (s *Statement) ErrorCode() string {
	return s.ErrorInfo().Code
}

// ErrorInfo describes the rejection, or the no-error value.
func (s *Statement) ErrorInfo() remote.Rejection {
	res := s.Result()
	if res.Err == nil {
		return remote.Translate(nil, s.conn.primaryKey)
	}
	return *res.Err
}

// LastInsertID returns the connection's last generated id for table.
func (s *Statement) LastInsertID(table string) string {
	return s.conn.LastInsertID(table)
}

// CloseCursor releases the cursor. It is a no-op kept for callers that expect it.
func (s *Statement) CloseCursor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.Close()
}

// Cursor exposes the result cursor after Execute.
func (s *Statement) Cursor() *Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}
