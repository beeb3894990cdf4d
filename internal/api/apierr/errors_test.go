package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/futebolada/internal/model"
	"github.com/mcoot/futebolada/internal/services/auth"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: name is required", model.ErrInvalidInput), http.StatusBadRequest, CodeInvalidRequest},
		{model.ErrInvalidPosition, http.StatusBadRequest, CodeInvalidPosition},
		{model.ErrInvalidTeam, http.StatusBadRequest, CodeInvalidTeam},
		{model.ErrInvalidGame, http.StatusBadRequest, CodeInvalidGame},
		{model.ErrNotAdmin, http.StatusForbidden, CodeForbidden},
		{model.ErrNotEnrollmentOwner, http.StatusForbidden, CodeNotEnrollmentOwner},
		{model.ErrGameOver, http.StatusForbidden, CodeGameOver},
		{model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
		{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
		{model.ErrUserNotFound, http.StatusNotFound, CodeUserNotFound},
		{model.ErrEnrollmentNotFound, http.StatusNotFound, CodeEnrollmentNotFound},
		{model.ErrGuestNotFound, http.StatusNotFound, CodeGuestNotFound},
		{model.ErrPositionTaken, http.StatusConflict, CodePositionTaken},
		{fmt.Errorf("enrolling: %w", model.ErrAlreadyEnrolled), http.StatusConflict, CodeAlreadyEnrolled},
		{model.ErrEmailExists, http.StatusConflict, CodeEmailExists},
		{model.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
		{auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{NewUnauthorizedError(), http.StatusUnauthorized, CodeUnauthorized},
		{NewInvalidRequestError("bad"), http.StatusBadRequest, CodeInvalidRequest},
		{errors.New("database exploded"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tc := range cases {
		he := toHTTPError(tc.err)
		assert.Equal(t, tc.status, he.status, tc.err.Error())
		assert.Equal(t, tc.code, he.apiError.Code, tc.err.Error())

		rr := httptest.NewRecorder()
		WriteError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("%w: password must be at least 8 characters", model.ErrInvalidInput))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "invalid input: password must be at least 8 characters", resp.Error.Message)
}

func TestInternalErrorsDoNotLeakDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: connection refused"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Internal server error", resp.Error.Message)
}
