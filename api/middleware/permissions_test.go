package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/danielvega/portfolio-backend/pkg/errors"
)

type fakeChecker struct {
	allowed  bool
	err      error
	lastPerm string
	lastID   string
}

func (f *fakeChecker) HasPermission(_ context.Context, identityID, permission string) (bool, error) {
	f.lastID = identityID
	f.lastPerm = permission
	return f.allowed, f.err
}

func TestRequirePermissionAllows(t *testing.T) {
	checker := &fakeChecker{allowed: true}
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs", nil)
	req = req.WithContext(WithIdentityID(req.Context(), "identity-1"))
	resp := httptest.NewRecorder()
	RequirePermission(checker, "blogs:read", middlewareTestLogger())(next).ServeHTTP(resp, req)

	if !ran {
		t.Fatal("expected next handler to run")
	}
	if checker.lastID != "identity-1" || checker.lastPerm != "blogs:read" {
		t.Fatalf("unexpected check %q/%q", checker.lastID, checker.lastPerm)
	}
}

func TestRequirePermissionForbids(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs", nil)
	req = req.WithContext(WithIdentityID(req.Context(), "identity-1"))
	resp := httptest.NewRecorder()
	RequirePermission(&fakeChecker{}, "blogs:write", middlewareTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestRequirePermissionWithoutIdentity(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs", nil)
	resp := httptest.NewRecorder()
	RequirePermission(&fakeChecker{allowed: true}, "blogs:read", middlewareTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequirePermissionPropagatesCacheOutage(t *testing.T) {
	checker := &fakeChecker{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("redis down"), "read authorization cache")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blogs", nil)
	req = req.WithContext(WithIdentityID(req.Context(), "identity-1"))
	resp := httptest.NewRecorder()
	RequirePermission(checker, "blogs:read", middlewareTestLogger())(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}
