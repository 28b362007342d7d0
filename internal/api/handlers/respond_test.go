package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"auction-engine/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation maps to 422", fmt.Errorf("bad input: %w", domain.ErrValidation), http.StatusUnprocessableEntity},
		{"state maps to 422", fmt.Errorf("not active: %w", domain.ErrState), http.StatusUnprocessableEntity},
		{"authorization maps to 403", fmt.Errorf("not yours: %w", domain.ErrAuthorization), http.StatusForbidden},
		{"conflict maps to 409", fmt.Errorf("price moved: %w", domain.ErrConflict), http.StatusConflict},
		{"not found maps to 404", fmt.Errorf("gone: %w", domain.ErrNotFound), http.StatusNotFound},
		{"anything else maps to 500", errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, respondError(c, tc.err))
			require.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	t.Parallel()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, respondError(c, errors.New("dsn user:pass@tcp leaked")))
	require.NotContains(t, rec.Body.String(), "dsn")
}

func TestRequesterID(t *testing.T) {
	t.Parallel()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(userIDHeader, "user-1")
	c := e.NewContext(req, httptest.NewRecorder())

	id, err := requesterID(c)
	require.NoError(t, err)
	require.Equal(t, "user-1", id)

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	c = e.NewContext(bare, httptest.NewRecorder())
	_, err = requesterID(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
