// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package remotetest provides an in-memory remote.API for tests.
package remotetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"seedfast/forcebridge/internal/remote"
)

// Fake records every call and answers from its hooks. Unset hooks succeed.
type Fake struct {
	mu sync.Mutex

	LoginErr  error
	Logins    int
	Describes map[string]*remote.DescribeResult
	// DescribeCalls counts describe round trips.
	DescribeCalls int

	QueryRecords []remote.Record
	Queries      []string
	QueryAlls    []string

	CreateFunc   func(records []remote.Record, opts remote.CallOptions) ([]remote.SaveResult, error)
	UpdateFunc   func(records []remote.Record) ([]remote.SaveResult, error)
	DeleteFunc   func(ids []string) ([]remote.SaveResult, error)
	RetrieveFunc func(object string, ids, fields []string) ([]*remote.Record, error)

	Created    [][]remote.Record
	CreateOpts []remote.CallOptions
	Updated    [][]remote.Record
	Deleted    [][]string
	Retrieved  [][]string

	// ExpireCalls makes the next n data calls fail with an expired session.
	ExpireCalls int
	// Tokens lists the session token each data call was made with.
	Tokens []string

	nextID int
}

var _ remote.API = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{Describes: map[string]*remote.DescribeResult{}}
}

func (f *Fake) Login(context.Context) (remote.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoginErr != nil {
		return remote.Session{}, f.LoginErr
	}
	f.Logins++
	return remote.Session{
		Token:       fmt.Sprintf("session-%d", f.Logins),
		InstanceURL: "https://fake.example.com",
		AcquiredAt:  time.Now(),
	}, nil
}

// enter records the call and reports whether it should fail as expired.
func (f *Fake) enter(s remote.Session) error {
	f.Tokens = append(f.Tokens, s.Token)
	if f.ExpireCalls > 0 {
		f.ExpireCalls--
		return &remote.APIError{Status: 401, Code: "INVALID_SESSION_ID", Message: "Session expired or invalid"}
	}
	return nil
}

func (f *Fake) DescribeObject(_ context.Context, s remote.Session, object string) (*remote.DescribeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.DescribeCalls++
	d, ok := f.Describes[object]
	if !ok {
		return nil, &remote.APIError{Status: 404, Code: "NOT_FOUND", Message: "The requested resource does not exist"}
	}
	return d, nil
}

func (f *Fake) Query(_ context.Context, s remote.Session, soql string) ([]remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.Queries = append(f.Queries, soql)
	return append([]remote.Record{}, f.QueryRecords...), nil
}

func (f *Fake) QueryAll(_ context.Context, s remote.Session, soql string) ([]remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.QueryAlls = append(f.QueryAlls, soql)
	return append([]remote.Record{}, f.QueryRecords...), nil
}

func (f *Fake) Create(_ context.Context, s remote.Session, records []remote.Record, opts remote.CallOptions) ([]remote.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.Created = append(f.Created, records)
	f.CreateOpts = append(f.CreateOpts, opts)
	if f.CreateFunc != nil {
		return f.CreateFunc(records, opts)
	}
	out := make([]remote.SaveResult, len(records))
	for i := range records {
		f.nextID++
		out[i] = remote.SaveResult{ID: fmt.Sprintf("001%012d", f.nextID), Success: true}
	}
	return out, nil
}

func (f *Fake) Update(_ context.Context, s remote.Session, records []remote.Record, _ remote.CallOptions) ([]remote.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.Updated = append(f.Updated, records)
	if f.UpdateFunc != nil {
		return f.UpdateFunc(records)
	}
	out := make([]remote.SaveResult, len(records))
	for i, r := range records {
		out[i] = remote.SaveResult{ID: r.ID, Success: true}
	}
	return out, nil
}

func (f *Fake) Delete(_ context.Context, s remote.Session, ids []string, _ remote.CallOptions) ([]remote.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.Deleted = append(f.Deleted, ids)
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ids)
	}
	out := make([]remote.SaveResult, len(ids))
	for i, id := range ids {
		out[i] = remote.SaveResult{ID: id, Success: true}
	}
	return out, nil
}

func (f *Fake) Retrieve(_ context.Context, s remote.Session, object string, ids, fields []string) ([]*remote.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(s); err != nil {
		return nil, err
	}
	f.Retrieved = append(f.Retrieved, fields)
	if f.RetrieveFunc != nil {
		return f.RetrieveFunc(object, ids, fields)
	}
	out := make([]*remote.Record, len(ids))
	for i, id := range ids {
		r := remote.NewRecord(object)
		r.ID = id
		r.Set("Id", id)
		out[i] = &r
	}
	return out, nil
}

// Fail returns a failed SaveResult carrying one error.
func Fail(code, message string, fields ...string) remote.SaveResult {
	return remote.SaveResult{
		Success: false,
		Errors:  []remote.RemoteError{{StatusCode: code, Message: message, Fields: fields}},
	}
}
