// AngelaMos | 2026
// errors_test.go

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failureBody struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Code    string       `json:"code"`
	Errors  []FieldError `json:"errors"`
}

func TestJSONError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, fmt.Errorf("wrapped: %w", ForbiddenError("nope")))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body failureBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "nope", body.Message)
	assert.Equal(t, "FORBIDDEN", body.Code)
}

func TestJSONError_UnknownErrorIsOpaque(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, errors.New("pq: connection refused on 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("refresh: %w", TokenExpiredError())
	assert.True(t, errors.Is(err, ErrTokenExpired))
	assert.True(t, IsAppError(err))
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, "items", []int{1, 2}, 2, 10, 21)

	var body struct {
		Success    bool       `json:"success"`
		Items      []int      `json:"items"`
		Pagination Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, Pagination{Current: 2, Pages: 3, Total: 21}, body.Pagination)
}

func TestValidator_UsernameTag(t *testing.T) {
	type req struct {
		Username string `json:"username" validate:"required,min=3,max=30,username"`
	}

	v := NewValidator()
	require.NoError(t, v.Struct(req{Username: "alice_01"}))

	err := v.Struct(req{Username: "al ice"})
	require.Error(t, err)

	fields := ValidationFields(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "username", fields[0].Field)
}
