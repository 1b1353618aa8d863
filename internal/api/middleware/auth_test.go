// auth_test.go — тесты middleware аутентификации.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(Account(r)))
	})
}

// Некорректные заголовки отклоняются до обращения к JWKS,
// поэтому keyfunc не нужна.
func TestJWTAuthRejectsMalformedHeader(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := NewJWTAuthWithKeyfunc(nil, "", time.Second, logger)
	handler := auth.Middleware()(okHandler(t))

	tests := []struct {
		name   string
		header string
	}{
		{"отсутствует заголовок", ""},
		{"не Bearer", "Basic dXNlcjpwYXNz"},
		{"пустой токен", "Bearer "},
		{"только схема", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, ожидалось 401", rec.Code)
			}
		})
	}
}

func TestDevAuth(t *testing.T) {
	handler := DevAuth()(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces", nil)
	req.Header.Set("X-Account", "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, ожидалось 200", rec.Code)
	}
	if rec.Body.String() != "alice" {
		t.Errorf("аккаунт = %q, ожидалось alice", rec.Body.String())
	}

	// Без X-Account — 401.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/spaces", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, ожидалось 401", rec.Code)
	}
}

func TestAccountWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := Account(req); got != "" {
		t.Errorf("Account = %q, ожидалась пустая строка", got)
	}
}
