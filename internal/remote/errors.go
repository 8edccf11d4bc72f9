// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	ferr "seedfast/forcebridge/internal/errors"
)

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("remote API returned %d", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsSessionExpired reports whether err says the session token is no longer valid.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Code == "INVALID_SESSION_ID"
}

// decodeAPIError reads both error body shapes the API uses: a list of
// {message, errorCode} for data endpoints and {error, error_description} for
// the OAuth endpoint.
func decodeAPIError(status int, body []byte, requestID string) *APIError {
	e := &APIError{Status: status, RequestID: requestID}

	var list []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if json.Unmarshal(body, &list) == nil && len(list) > 0 {
		e.Code, e.Message = list[0].ErrorCode, list[0].Message
		return e
	}

	var oauth struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &oauth) == nil && oauth.Error != "" {
		e.Code, e.Message = oauth.Error, oauth.Description
		return e
	}

	e.Message = truncate(strings.TrimSpace(string(body)), maxErrorBody)
	return e
}

const maxErrorBody = 200

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// classify wraps an APIError with the taxonomy kind callers branch on.
func classify(op string, apiErr *APIError) error {
	if apiErr.Status == http.StatusUnauthorized || apiErr.Code == "INVALID_SESSION_ID" {
		return ferr.Wrap(ferr.Authentication, op+": session rejected", apiErr)
	}
	return ferr.Wrap(ferr.Transport, op, apiErr)
}

func violation(op, format string, args ...any) error {
	return ferr.Newf(ferr.ProtocolViolation, op+": "+format, args...)
}
