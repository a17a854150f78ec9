package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meetlog/meetlog/internal/users"
)

func newAuthEcho() *echo.Echo {
	e := echo.New()
	NewAuthHandler(slog.Default(), users.NewService(slog.Default(), nil), "s3cret", time.Hour).Register(e)
	return e
}

func TestLoginMissingCredentials(t *testing.T) {
	e := newAuthEcho()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":""}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMeWithoutToken(t *testing.T) {
	e := newAuthEcho()

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
