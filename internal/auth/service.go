package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/logging"
)

var (
	ErrInvalidCredentials = accounts.ErrInvalidCredentials
	ErrRefreshInvalid     = errors.New("invalid or expired refresh token")
)

// AccountStore is the part of the account registry the auth service needs.
type AccountStore interface {
	Authenticate(ctx context.Context, email, password string) (accounts.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

// AuthService handles password login and rotating refresh tokens.
type AuthService struct {
	store         *redisStore
	jwt           *JWTService
	accounts      AccountStore
	refreshExpiry time.Duration
}

func NewAuthService(redisClient *redis.Client, jwtSvc *JWTService, accts AccountStore, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		store:         newRedisStore(redisClient),
		jwt:           jwtSvc,
		accounts:      accts,
		refreshExpiry: cfg.RefreshExpiry,
	}
}

// Login checks the password and returns a new access + refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error) {
	acc, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) {
			logging.Warn("login rejected", "email", email)
		}
		return "", "", err
	}

	accessToken, refreshToken, err = s.issueTokenPair(ctx, acc)
	if err != nil {
		return "", "", err
	}

	logging.Info("user logged in", "user_id", acc.ID, "role", acc.Role, "area", acc.AreaCode)
	return accessToken, refreshToken, nil
}

// rotates refresh token and returns new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (newAccess, newRefresh string, err error) {
	hash := hashString(refreshToken)

	userIDStr, err := s.store.getRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshInvalid
		}
		return "", "", fmt.Errorf("retrieving refresh token: %w", err)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid user ID in refresh token: %w", err)
	}

	taken, err := s.store.takeRefreshToken(ctx, hash, userIDStr)
	if err != nil {
		return "", "", fmt.Errorf("deleting refresh token: %w", err)
	}
	if !taken {
		return "", "", ErrRefreshInvalid
	}

	acc, err := s.accounts.GetByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && !acc.Active) {
		return "", "", ErrRefreshInvalid
	}
	if err != nil {
		return "", "", err
	}

	newAccess, newRefresh, err = s.issueTokenPair(ctx, acc)
	if err != nil {
		return "", "", err
	}

	logging.Info("refresh token rotated", "user_id", userID)
	return newAccess, newRefresh, nil
}

// logs out user
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	hash := hashString(refreshToken)

	userIDStr, err := s.store.getRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("looking up refresh token: %w", err)
	}

	if _, err := s.store.takeRefreshToken(ctx, hash, userIDStr); err != nil {
		return fmt.Errorf("deleting refresh token: %w", err)
	}

	logging.Info("user logged out", "user_id", userIDStr)
	return nil
}

// RevokeAll ends every session of the account, used when it is deactivated.
func (s *AuthService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.store.revokeAll(ctx, userID.String())
	if err != nil {
		return fmt.Errorf("revoking refresh tokens: %w", err)
	}
	logging.Info("refresh tokens revoked", "user_id", userID, "count", n)
	return nil
}

// generates a JWT access token and a random refresh token
func (s *AuthService) issueTokenPair(ctx context.Context, acc accounts.Account) (accessToken, refreshToken string, err error) {
	accessToken, err = s.jwt.GenerateToken(ctx, acc.Session())
	if err != nil {
		return "", "", fmt.Errorf("generating access token: %w", err)
	}

	rawRefresh, err := generateRefreshToken()
	if err != nil {
		return "", "", fmt.Errorf("generating refresh token: %w", err)
	}

	hash := hashString(rawRefresh)
	if err := s.store.storeRefreshToken(ctx, hash, acc.ID.String(), s.refreshExpiry); err != nil {
		return "", "", fmt.Errorf("storing refresh token: %w", err)
	}

	return accessToken, rawRefresh, nil
}

// returns 32 random bytes as a hex string (64 chars).
func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
