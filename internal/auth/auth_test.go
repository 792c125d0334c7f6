package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h7labs/imageforge/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue(42)
	require.NoError(t, err)

	userID, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	token, err := auth.NewTokenManager("secret-a", time.Hour).Issue(42)
	require.NoError(t, err)

	_, err = auth.NewTokenManager("secret-b", time.Hour).Parse(token)
	require.Error(t, err)
}

func TestParse_RejectsExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Nanosecond)

	token, err := tm.Issue(42)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = tm.Parse(token)
	require.Error(t, err)
}

func echoUserHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserID(r.Context())
		require.True(t, ok)
		_ = json.NewEncoder(w).Encode(map[string]any{"user_id": userID})
	})
}

func TestMiddleware_BearerHeader(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	token, err := tm.Issue(7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	auth.Middleware(tm)(echoUserHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":7`)
}

func TestMiddleware_SessionCookie(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	token, err := tm.Issue(7)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: token})
	rec := httptest.NewRecorder()

	auth.Middleware(tm)(echoUserHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_MissingTokenIsJSONFailure(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()

	auth.Middleware(tm)(echoUserHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
}

func TestMiddleware_GarbageTokenRejected(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	auth.Middleware(tm)(echoUserHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
