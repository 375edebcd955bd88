package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type JWTService struct {
	signingKey jwk.Key
	issuer     string
	expiry     time.Duration
}

// TokenClaims are informational for clients; the authenticator reloads the
// account on every request.
type TokenClaims struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     rbac.Role `json:"role"`
	AreaCode string    `json:"area_code,omitempty"`
}

func NewJWTService(signingKey []byte, issuer string, expiry time.Duration) (*JWTService, error) {
	key, err := jwk.FromRaw(signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, jwa.HS256); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	return &JWTService{
		signingKey: key,
		issuer:     issuer,
		expiry:     expiry,
	}, nil
}

func (s *JWTService) GenerateToken(ctx context.Context, sess rbac.Session) (string, error) {
	now := time.Now()

	builder := jwt.NewBuilder().
		Issuer(s.issuer).
		Subject(sess.UserID.String()).
		IssuedAt(now).
		Expiration(now.Add(s.expiry)).
		Claim("user_id", sess.UserID.String()).
		Claim("role", string(sess.Role))
	if sess.AreaCode != "" {
		builder = builder.Claim("area_code", sess.AreaCode)
	}

	token, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.signingKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

func (s *JWTService) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	parsedToken, err := jwt.Parse([]byte(tokenString), jwt.WithKey(jwa.HS256, s.signingKey), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if err := jwt.Validate(parsedToken); err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	userIDStr, ok := claimString(parsedToken, "user_id")
	if !ok {
		return nil, fmt.Errorf("user_id claim not found")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id format: %w", err)
	}

	roleStr, _ := claimString(parsedToken, "role")
	role, ok := rbac.ParseRole(roleStr)
	if !ok {
		return nil, fmt.Errorf("invalid role claim %q", roleStr)
	}
	area, _ := claimString(parsedToken, "area_code")

	return &TokenClaims{
		UserID:   userID,
		Role:     role,
		AreaCode: area,
	}, nil
}

func claimString(token jwt.Token, name string) (string, bool) {
	v, ok := token.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
