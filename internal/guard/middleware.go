package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("guard")

// CacheEntry is one resolver cache record. Token records carry the verified
// user and the token's expiry; user records carry the profile-backed identity.
type CacheEntry struct {
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resolver turns bearer tokens into identities. Token verification and the
// profile lookup are cached separately so a profile change or deletion takes
// effect on the next request through ForgetUser.
type Resolver struct {
	idp      port.IdentityProvider
	profiles port.ProfileStore
	cache    port.Cache[CacheEntry]
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. cache and metrics may be nil.
func NewResolver(idp port.IdentityProvider, profiles port.ProfileStore, cache port.Cache[CacheEntry], metrics *observability.Metrics, logger *zap.Logger) *Resolver {
	return &Resolver{idp: idp, profiles: profiles, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// Resolve verifies the token and loads the caller's profile. A token without a
// profile yields an identity with an empty role.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "Guard.Resolve")
	defer span.End()

	user, err := r.verify(ctx, token)
	if err != nil {
		return nil, err
	}

	key := userKey(user.UserID)
	if r.cache != nil {
		if e, ok := r.cache.Get(key); ok {
			r.countCache(true)
			return &e.Identity, nil
		}
		r.countCache(false)
	}

	id := user
	profile, err := r.profiles.GetProfileByUserID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		id.ProfileID = profile.ID
		id.FullName = profile.FullName
		id.Role = profile.Role
	}

	if r.cache != nil {
		r.cache.Set(key, CacheEntry{Identity: id})
	}
	return &id, nil
}

// verify returns the auth user behind token. Cached verifications are reused
// until the token expires.
func (r *Resolver) verify(ctx context.Context, token string) (Identity, error) {
	key := tokenKey(token)
	now := r.now()
	if r.cache != nil {
		if e, ok := r.cache.Get(key); ok {
			if e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt) {
				return e.Identity, nil
			}
			r.cache.Delete(key)
		}
	}

	user, err := r.idp.VerifyToken(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UserID: user.ID, Email: user.Email}

	exp := tokenExpiry(token)
	if r.cache != nil && (exp.IsZero() || now.Before(exp)) {
		r.cache.Set(key, CacheEntry{Identity: id, ExpiresAt: exp})
	}
	return id, nil
}

// ForgetUser drops the cached identity of a user, e.g. after an admin changed
// or deleted its profile.
func (r *Resolver) ForgetUser(userID string) {
	if r == nil || r.cache == nil || userID == "" {
		return
	}
	r.cache.Delete(userKey(userID))
}

// tokenExpiry reads the exp claim of a JWT the identity provider already
// accepted. Opaque tokens have no known expiry.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func tokenKey(token string) string { return "token:" + hashToken(token) }

func userKey(userID string) string { return "user:" + userID }

func (r *Resolver) countCache(hit bool) {
	if r.metrics == nil {
		return
	}
	if hit {
		r.metrics.IncrCacheHit("identity")
	} else {
		r.metrics.IncrCacheMiss("identity")
	}
}

// Authenticate resolves the bearer token, if any, and stores the identity on
// the request context. It never rejects: Require turns the result into a
// response. Invalid tokens resolve to no identity; an unreachable identity
// service marks the request as loading.
func Authenticate(resolver *Resolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				var unauthorized *domain.ErrUnauthorized
				if errors.As(err, &unauthorized) {
					logger.Warn("guard: invalid or expired token",
						zap.String("path", r.URL.Path),
						zap.String("remote_addr", r.RemoteAddr),
					)
					next.ServeHTTP(w, r)
					return
				}
				logger.Error("guard: identity resolution failed",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				next.ServeHTTP(w, r.WithContext(withLoading(r.Context())))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// Require gates a route on Decide. Redirects go to authEntry with the original
// location preserved: browsers get a 302, API callers a 401 carrying the URL.
func Require(authEntry string, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := FromContext(r.Context())
			switch Decide(loadingFromContext(r.Context()), id, roles) {
			case DecisionLoading:
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Identity is still loading, retry shortly"})
			case DecisionRedirect:
				target := RedirectURL(authEntry, r.URL.RequestURI())
				if wantsHTML(r) {
					http.Redirect(w, r, target, http.StatusFound)
					return
				}
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required", "redirect": target})
			case DecisionDenied:
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "Access denied"})
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RedirectURL appends the requested location to the auth entry point.
func RedirectURL(authEntry, requested string) string {
	sep := "?"
	if strings.Contains(authEntry, "?") {
		sep = "&"
	}
	return authEntry + sep + "redirect=" + url.QueryEscape(requested)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
