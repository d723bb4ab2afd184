package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liblend/orderdesk/internal/core"
)

const (
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "

	sessionKeyPrefix = "orderdesk:session:"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the authenticated caller of a request. The role is the one
// granted at login; a token that never passed through our login endpoint
// is treated as a plain reader.
type Principal struct {
	Profile core.ReaderProfile `json:"profile"`
	Role    core.Role          `json:"role"`
}

// PrincipalFrom extracts the authenticated principal from a request context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	return principal, ok
}

// SessionCache stores authenticated principals in Redis keyed by their
// opaque access token, so not every request round-trips to the identity
// provider.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a SessionCache with the given entry lifetime.
func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
	}
}

// Get loads the principal cached for a token. A miss is (nil, nil).
func (c *SessionCache) Get(ctx context.Context, token string) (*Principal, error) {
	value, err := c.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, err
	}

	var principal Principal
	if unmarshalErr := json.Unmarshal([]byte(value), &principal); unmarshalErr != nil {
		return nil, unmarshalErr
	}

	return &principal, nil
}

// Put caches the principal for a token.
func (c *SessionCache) Put(ctx context.Context, token string, principal Principal) error {
	value, err := json.Marshal(principal)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, sessionKeyPrefix+token, value, c.ttl).Err()
}

// Sessions is the session cache surface the server needs.
type Sessions interface {
	Get(ctx context.Context, token string) (*Principal, error)
	Put(ctx context.Context, token string, principal Principal) error
}

// authenticate resolves the bearer token of a request into a Principal.
// Cache first, identity provider on a miss. Cache failures degrade to a
// provider lookup instead of failing the request.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.writeErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		principal, cacheErr := s.sessions.Get(r.Context(), token)
		if cacheErr != nil {
			s.logError("session cache lookup failed", cacheErr)
		}

		if principal == nil {
			profile, profileErr := s.identity.Profile(r.Context(), token)
			if profileErr != nil {
				s.respondError(w, profileErr)
				return
			}

			principal = &Principal{Profile: profile, Role: core.RoleReader}

			if putErr := s.sessions.Put(r.Context(), token, *principal); putErr != nil {
				s.logError("session cache write failed", putErr)
			}
		}

		ctx := context.WithValue(r.Context(), principalContextKey, *principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireStaff rejects readers on the staff routes.
func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok || !principal.Role.IsStaff() {
			s.writeErrorCode(w, http.StatusForbidden, codeForbidden, "staff access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(headerAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}

	token := strings.TrimPrefix(header, bearerPrefix)

	return token, token != ""
}
