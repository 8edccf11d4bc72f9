// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

// NoErrorCode is reported when a call carried no errors.
const NoErrorCode = "00000"

const noErrorMessage = "no error"

// Rejection is a normalized business-level failure for a single record.
// It is data, not an error: execution still completes.
type Rejection struct {
	Code    string
	Message string
	Field   string
}

// OK reports whether the rejection is the no-error value.
func (r Rejection) OK() bool { return r.Code == NoErrorCode }

// Translate normalizes a remote error list. Only the first entry is kept; its
// first field names the offender, falling back to the primary key.
func Translate(errs []RemoteError, primaryKey string) Rejection {
	if len(errs) == 0 {
		return Rejection{Code: NoErrorCode, Message: noErrorMessage}
	}
	first := errs[0]
	field := primaryKey
	if len(first.Fields) > 0 && first.Fields[0] != "" {
		field = first.Fields[0]
	}
	return Rejection{Code: first.StatusCode, Message: first.Message, Field: field}
}
