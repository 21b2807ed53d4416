package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type stubValidator struct {
	userID uuid.UUID
	err    error
	seen   string
}

func (v *stubValidator) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	v.seen = token
	return v.userID, v.err
}

func TestRequireUser(t *testing.T) {
	userID := uuid.New()
	validator := &stubValidator{userID: userID}

	var gotID uuid.UUID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserFromCtx(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	RequireUser(validator)(next).ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if validator.seen != "some-token" {
		t.Errorf("token passed to validator: got %q", validator.seen)
	}
	if !gotOK || gotID != userID {
		t.Errorf("context identity: got %s ok=%v, want %s", gotID, gotOK, userID)
	}
}

func TestRequireUserRejectsBadHeaders(t *testing.T) {
	validator := &stubValidator{userID: uuid.New()}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	})
	mw := RequireUser(validator)(next)

	cases := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"not bearer", "Basic abc123"},
		{"bare token", "some-token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, r)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireUserRejectsInvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("expired")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run with an invalid token")
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	RequireUser(validator)(next).ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestUserFromCtxEmpty(t *testing.T) {
	if _, ok := UserFromCtx(context.Background()); ok {
		t.Error("empty context should carry no user")
	}
}
