// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// Every hard failure raised by forcebridge carries a machine-readable Kind so the
// CLI and library callers can branch on the category (configuration, login,
// unsupported statement shape, broken remote contract) without string matching.
//
// Business-level rejections reported by the remote API for a single record are
// deliberately NOT represented here: they are data (see remote.Rejection), never
// errors.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Configuration indicates missing or invalid connection metadata.
	Configuration Kind = "configuration"
	// Authentication indicates a failed login or a session the remote side rejected.
	Authentication Kind = "authentication"
	// UnsupportedStatement indicates a compiled statement shape the parser cannot interpret.
	UnsupportedStatement Kind = "unsupported_statement"
	// ProtocolViolation indicates the remote API answered with a shape outside its contract.
	ProtocolViolation Kind = "protocol_violation"
	// Transport indicates the remote call itself failed (network, unexpected HTTP status).
	Transport Kind = "transport"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, errors.New(kind, "")) matches any E of that kind.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf is New with fmt formatting.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
