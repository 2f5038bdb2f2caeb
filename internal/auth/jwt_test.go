package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var secret = []byte("unit-test-secret")

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue(secret, Claims{UserID: "u1", Roles: []string{RoleStaff}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := Parse(secret, tok)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("UserID = %q", claims.UserID)
	}
	if !claims.HasRole(RoleStaff) {
		t.Fatalf("missing staff role")
	}
	if claims.HasRole("admin") {
		t.Fatalf("unexpected admin role")
	}
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	tok, err := Issue([]byte("other"), Claims{UserID: "u1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := Parse(secret, tok); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParse_RejectsExpired(t *testing.T) {
	tok, err := Issue(secret, Claims{UserID: "u1"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if _, err := Parse(secret, tok); err == nil {
		t.Fatalf("expected error for expired token")
	}
}

func TestRequireStaff(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok || claims.UserID != "u1" {
			t.Fatalf("claims missing from context: %v %v", claims, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler := RequireStaff(secret)(next)

	t.Run("valid", func(t *testing.T) {
		tok, err := Issue(secret, Claims{UserID: "u1", Roles: []string{RoleStaff}}, time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rr.Code)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("not bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})

	t.Run("role missing", func(t *testing.T) {
		tok, err := Issue(secret, Claims{UserID: "u1", Roles: []string{"candidate"}}, time.Hour)
		if err != nil {
			t.Fatalf("Issue error: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rr.Code)
		}
	})
}
