package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMiddleware(tokens map[string]Claims) *Middleware {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewMiddleware(logger, tokens, WithAllowUnauthenticated("/healthz"))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestParseTokenRegistry(t *testing.T) {
	tokens := ParseTokenRegistry("abc:alice:planner, xyz:bob:viewer, malformed")

	require.Len(t, tokens, 2)
	assert.Equal(t, Claims{Subject: "alice", Role: RolePlanner}, tokens["abc"])
	assert.Equal(t, Claims{Subject: "bob", Role: RoleViewer}, tokens["xyz"])
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	m := newTestMiddleware(map[string]Claims{"abc": {Subject: "alice", Role: RolePlanner}})
	handler := m.Wrap(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recommendations", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	m := newTestMiddleware(map[string]Claims{"abc": {Subject: "alice", Role: RolePlanner}})

	var seen *Claims
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Subject)
}

func TestMiddlewareViewerIsReadOnly(t *testing.T) {
	m := newTestMiddleware(map[string]Claims{"xyz": {Subject: "bob", Role: RoleViewer}})
	handler := m.Wrap(okHandler())

	post := httptest.NewRequest(http.MethodPost, "/v1/recommendations", nil)
	post.Header.Set("Authorization", "Bearer xyz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, post)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	get := httptest.NewRequest(http.MethodGet, "/v1/recommendations/some-id", nil)
	get.Header.Set("Authorization", "Bearer xyz")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAllowlist(t *testing.T) {
	m := newTestMiddleware(map[string]Claims{"abc": {Subject: "alice", Role: RolePlanner}})
	handler := m.Wrap(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareDisabledWithoutTokens(t *testing.T) {
	m := newTestMiddleware(nil)
	handler := m.Wrap(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/recommendations", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
