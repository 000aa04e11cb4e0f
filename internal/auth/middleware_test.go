package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyweave/studyweave/internal/model"
)

func newMiddlewareFixture(t *testing.T) (*TokenService, http.Handler) {
	t.Helper()
	tokens, err := NewTokenService(testSecret)
	require.NoError(t, err)

	// Echoes the authenticated user ID so tests can see what landed in the
	// context.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		w.Write([]byte(id.UserID))
	})
	return tokens, inner
}

func TestRequireAuth(t *testing.T) {
	tokens, inner := newMiddlewareFixture(t)
	protected := RequireAuth(tokens)(inner)

	token, err := tokens.Generate("user42", model.RoleParticipant)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "user42"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tokens, inner := newMiddlewareFixture(t)
	protected := RequireAuth(tokens)(RequireRole(model.RoleResearcher)(inner))

	call := func(role model.Role) int {
		token, err := tokens.Generate("u1", role)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call(model.RoleResearcher))
	assert.Equal(t, http.StatusOK, call(model.RoleAdmin), "admin passes every role gate")
	assert.Equal(t, http.StatusForbidden, call(model.RoleParticipant))
	assert.Equal(t, http.StatusForbidden, call(model.RoleGuest))
}

func TestOptionalAuth(t *testing.T) {
	tokens, inner := newMiddlewareFixture(t)
	open := OptionalAuth(tokens)(inner)

	// Anonymous requests pass through with no identity.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	// A valid token attaches the identity.
	token, err := tokens.Generate("user7", model.RoleGuest)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, req)
	assert.Equal(t, "user7", rec.Body.String())
}
