// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package remote talks to the remote object API over REST.
// It defines the API contract the executors depend on (login, describe,
// query, record collections) and an HTTP implementation of it. Responses that
// break the contract's shape surface as ProtocolViolation errors; per-record
// business failures come back as data in SaveResult.
package remote

import "context"

// DefaultAPIVersion is used when a connection does not pin one.
const DefaultAPIVersion = "59.0"

// API defines the remote operations the adapter depends on.
// Implementations may call the real REST endpoints or provide fakes for tests.
type API interface {
	// Login authenticates with the configured credentials and returns a fresh session.
	Login(ctx context.Context) (Session, error)
	DescribeObject(ctx context.Context, s Session, object string) (*DescribeResult, error)
	// Query runs a query and returns every record, following result pages.
	Query(ctx context.Context, s Session, soql string) ([]Record, error)
	// QueryAll is Query including archived and soft-deleted records.
	QueryAll(ctx context.Context, s Session, soql string) ([]Record, error)
	// Create, Update and Delete return exactly one SaveResult per input, in order.
	Create(ctx context.Context, s Session, records []Record, opts CallOptions) ([]SaveResult, error)
	Update(ctx context.Context, s Session, records []Record, opts CallOptions) ([]SaveResult, error)
	Delete(ctx context.Context, s Session, ids []string, opts CallOptions) ([]SaveResult, error)
	// Retrieve returns one entry per id, nil where the record does not exist.
	Retrieve(ctx context.Context, s Session, object string, ids, fields []string) ([]*Record, error)
}
