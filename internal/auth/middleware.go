package auth

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	bearerPrefix = "bearer "
)

// Middleware validates bearer tokens against a static registry and injects
// the resulting claims into the request context. An empty registry disables
// authentication entirely.
type Middleware struct {
	logger    *logrus.Logger
	tokens    map[string]Claims
	allowlist map[string]struct{}
}

// Option customizes the middleware behaviour.
type Option func(*Middleware)

// WithAllowUnauthenticated registers URL paths that bypass authentication.
func WithAllowUnauthenticated(paths ...string) Option {
	return func(m *Middleware) {
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				continue
			}
			m.allowlist[p] = struct{}{}
		}
	}
}

// NewMiddleware constructs an authentication middleware from a token
// registry mapping bearer token to claims.
func NewMiddleware(logger *logrus.Logger, tokens map[string]Claims, opts ...Option) *Middleware {
	if logger == nil {
		logger = logrus.New()
	}

	m := &Middleware{
		logger:    logger,
		tokens:    tokens,
		allowlist: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ParseTokenRegistry parses the REPLENISH_API_TOKENS format:
// "token:subject:role" entries separated by commas. Malformed entries are
// skipped.
func ParseTokenRegistry(raw string) map[string]Claims {
	tokens := make(map[string]Claims)
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" {
			continue
		}
		tokens[parts[0]] = Claims{
			Subject: parts[1],
			Role:    NormalizeRole(parts[2]),
		}
	}
	return tokens
}

// Wrap returns a handler that authenticates requests before delegating.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if len(m.tokens) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.allowlist[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := m.authenticate(r)
		if !ok {
			m.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"remote": r.RemoteAddr,
			}).Warn("rejected unauthenticated request")
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		if r.Method != http.MethodGet && !claims.CanWrite() {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Claims, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(strings.ToLower(header), bearerPrefix) {
		return nil, false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	claims, ok := m.tokens[token]
	if !ok {
		return nil, false
	}
	return &claims, true
}
