package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuditInput_RejectsTextOverMaxLength(t *testing.T) {
	h := &Handler{maxTextLength: 10}
	body, err := json.Marshal(auditRequestBody{Text: strings.Repeat("a", 11)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	_, err = h.parseAuditInput(rec, req)
	require.Error(t, err)
	var tooLong *TextTooLong
	assert.True(t, errors.As(err, &tooLong))
	assert.Equal(t, 11, tooLong.Length)
	assert.Equal(t, 10, tooLong.Limit)
}

func TestParseAuditInput_AcceptsTextAtExactMaxLength(t *testing.T) {
	h := &Handler{maxTextLength: 10}
	body, err := json.Marshal(auditRequestBody{Text: strings.Repeat("a", 10)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	input, err := h.parseAuditInput(rec, req)
	require.NoError(t, err)
	assert.Len(t, input.Body, 10)
}
