package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, expiresAt, err := GenerateToken("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiry %v not about an hour out", remaining)
	}

	e := echo.New()
	e.Use(JWTMiddleware(secret, nil))
	e.GET("/whoami", func(c echo.Context) error {
		userID, err := UserIDFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, userID)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("user id = %q", rec.Body.String())
	}
}

func TestJWTMiddlewareRejects(t *testing.T) {
	e := echo.New()
	e.Use(JWTMiddleware("test-secret", nil))
	e.GET("/whoami", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", func() string {
			token, _, _ := GenerateToken("user-1", "other-secret", time.Hour)
			return "Bearer " + token
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.token != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized && rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 401 or 400", rec.Code)
			}
		})
	}
}

func TestJWTMiddlewareSkipper(t *testing.T) {
	e := echo.New()
	e.Use(JWTMiddleware("test-secret", func(c echo.Context) bool {
		return c.Request().URL.Path == "/ping"
	}))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("skipped route status = %d", rec.Code)
	}
}

func TestGenerateTokenGuards(t *testing.T) {
	if _, _, err := GenerateToken("user-1", "", time.Hour); err == nil {
		t.Error("empty secret must fail")
	}
	if _, _, err := GenerateToken("user-1", "secret", 0); err == nil {
		t.Error("zero expiry must fail")
	}
}
