package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// BearerScheme is the security scheme name used in the OpenAPI document.
const BearerScheme = "BearerAuth"

var ErrUnauthenticated = errors.New("authentication required")

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

type AccountLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

type AuthenticatedUser struct {
	ID       uuid.UUID
	Email    string
	Name     string
	Role     rbac.Role
	AreaCode string
}

func (u *AuthenticatedUser) Session() rbac.Session {
	return rbac.Session{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		AreaCode: u.AreaCode,
	}
}

type Authenticator struct {
	tokens   TokenValidator
	accounts AccountLookup
}

func NewAuthenticator(tokens TokenValidator, accts AccountLookup) *Authenticator {
	return &Authenticator{
		tokens:   tokens,
		accounts: accts,
	}
}

// Authenticate is the openapi3filter hook for routes declaring BearerAuth.
func (a *Authenticator) Authenticate(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input.SecuritySchemeName != BearerScheme {
		return fmt.Errorf("authentication service missing")
	}

	req := input.RequestValidationInput.Request
	user, err := a.resolve(ctx, bearerToken(req))
	if err != nil {
		return err
	}

	*req = *req.WithContext(WithUser(req.Context(), user))
	return nil
}

// Middleware authenticates routes that are not behind the request validator.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r.Context(), bearerToken(r))
		if err != nil {
			middleware.GetLoggerFromContext(r.Context()).Warn("Authentication failed", "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"code":    "AUTHENTICATION_REQUIRED",
					"message": "Authentication required",
				},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// resolve validates the token and reloads the account, so role or area
// changes and deactivation take effect before the token expires.
func (a *Authenticator) resolve(ctx context.Context, token string) (*AuthenticatedUser, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: bearer token missing", ErrUnauthenticated)
	}

	claims, err := a.tokens.ValidateToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", ErrUnauthenticated, err)
	}

	acc, err := a.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found: %v", ErrUnauthenticated, err)
	}
	if !acc.Active {
		return nil, fmt.Errorf("%w: account deactivated", ErrUnauthenticated)
	}

	return &AuthenticatedUser{
		ID:       acc.ID,
		Email:    acc.Email,
		Name:     acc.Name,
		Role:     acc.Role,
		AreaCode: acc.AreaCode,
	}, nil
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for websocket clients.
func bearerToken(r *http.Request) string {
	const bearerPrefix = "Bearer "
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(h, bearerPrefix) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return r.URL.Query().Get("access_token")
}

// WithUser stores the user and tags the request logger with it.
func WithUser(ctx context.Context, user *AuthenticatedUser) context.Context {
	ctx = context.WithValue(ctx, UserClaimsKey, user)
	logger := middleware.GetLoggerFromContext(ctx).With(
		"user_id", user.ID.String(),
		"role", string(user.Role),
	)
	return middleware.WithLogger(ctx, logger)
}

func GetAuthenticatedUser(ctx context.Context) (*AuthenticatedUser, bool) {
	user, ok := ctx.Value(UserClaimsKey).(*AuthenticatedUser)
	return user, ok
}
