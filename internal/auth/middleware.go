package auth

import (
	"context"
	"fmt"
	"ms-registration/internal/models"
	"net/http"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const identityKey contextKey = "identity"

// Verifier resolves a bearer token into a caller identity.
type Verifier interface {
	ParseToken(ctx context.Context, raw string) (models.Identity, error)
}

// Middleware authenticates requests with the given verifier and stores
// the resulting identity in the request context. The identity is passed
// explicitly to every service call; nothing below the handlers assumes
// a fixed actor.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			identity, err := verifier.ParseToken(r.Context(), raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects non-admin callers with 403 before the request
// reaches any service.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			http.Error(w, "admin privileges required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the authenticated caller stored by
// Middleware.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}

// OIDCVerifier validates tokens against an external OIDC issuer instead
// of the local HS256 secret. Used when OIDC_ISSUER is configured.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(ctx context.Context, issuer string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
	}, nil
}

func (v *OIDCVerifier) ParseToken(ctx context.Context, raw string) (models.Identity, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return models.Identity{}, err
	}

	var claims struct {
		Sub  string `json:"sub"`
		Role string `json:"role"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return models.Identity{}, err
	}

	userID, err := strconv.ParseInt(claims.Sub, 10, 64)
	if err != nil {
		return models.Identity{}, fmt.Errorf("subject claim is not a user id")
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}

	return models.Identity{UserID: userID, Role: role}, nil
}
