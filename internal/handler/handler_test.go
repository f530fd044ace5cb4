package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kehila/community-auth/internal/apperror"
)

func newContext(body string) echo.Context {
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"valid", `{"first_name":"A","last_name":"B","email":"a@x.com","password":"secret1"}`, ""},
		{"missing", `{"email":"a@x.com"}`, "Missing required fields"},
		{"bad email", `{"first_name":"A","last_name":"B","email":"nope","password":"secret1"}`, "Invalid email"},
		{"length checked later", `{"first_name":"A","last_name":"B","email":"a@x.com","password":"` + strings.Repeat("é", 40) + `"}`, ""},
		{"malformed", `{"first_name":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req registerReq
			err := bindAndValidate(newContext(tt.body), &req, "Missing required fields")

			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.want, apperror.PublicMessage(err))
		})
	}
}

func TestParseDueDate(t *testing.T) {
	d, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDueDate("2025-07-01")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC).Equal(*d))

	d, err = parseDueDate("2025-07-01T10:00:00+02:00")
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC).Equal(*d))

	_, err = parseDueDate("next tuesday")
	assert.Error(t, err)
}

func TestRespondError_HidesInternalCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, respondError(c, apperror.Internal(assert.AnError)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
