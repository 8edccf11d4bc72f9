// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package remote

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDecodeAPIError_Shapes(t *testing.T) {
	e := decodeAPIError(http.StatusBadRequest, []byte(`[{"message":"bad field","errorCode":"INVALID_FIELD"}]`), "req-1")
	assert.Equal(t, "INVALID_FIELD", e.Code)
	assert.Equal(t, "bad field", e.Message)
	assert.Equal(t, "req-1", e.RequestID)

	e = decodeAPIError(http.StatusBadRequest, []byte(`{"error":"invalid_grant","error_description":"authentication failure"}`), "")
	assert.Equal(t, "invalid_grant", e.Code)
	assert.Equal(t, "authentication failure", e.Message)

	e = decodeAPIError(http.StatusBadGateway, []byte("  upstream down \n"), "")
	assert.Empty(t, e.Code)
	assert.Equal(t, "upstream down", e.Message)
}

func TestDecodeAPIError_TruncatesOnRuneBoundary(t *testing.T) {
	// 199 ASCII bytes followed by multi-byte runes puts byte 200 inside a rune.
	body := strings.Repeat("a", maxErrorBody-1) + strings.Repeat("é", 10)
	e := decodeAPIError(http.StatusInternalServerError, []byte(body), "")

	assert.True(t, utf8.ValidString(e.Message))
	assert.LessOrEqual(t, len(e.Message), maxErrorBody)
	assert.Equal(t, strings.Repeat("a", maxErrorBody-1), e.Message)

	assert.Equal(t, "short", truncate("short", maxErrorBody))
	assert.Equal(t, "日本", truncate("日本語", 8))
}
