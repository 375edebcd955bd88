package api

import (
	"errors"
	"net/http"

	"github.com/siwarga/rwrt-backend/internal/auth"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
}

type FeatureAccess struct {
	Feature     rbac.Feature            `json:"feature"`
	Permissions rbac.FeaturePermissions `json:"permissions"`
}

type MeResponse struct {
	User     rbac.Session    `json:"user"`
	Features []FeatureAccess `json:"features"`
}

// sessionFrom returns the authenticated admin or answers 401.
func sessionFrom(w http.ResponseWriter, r *http.Request) (rbac.Session, bool) {
	user, ok := auth.GetAuthenticatedUser(r.Context())
	if !ok {
		Unauthorized("Authentication required").Write(w)
		return rbac.Session{}, false
	}
	return user.Session(), true
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		ValidationErr("Email and password are required", nil).Write(w)
		return
	}

	access, refresh, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		Unauthorized("Invalid email or password.").Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.tokens(access, refresh))
}

func (s *Server) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	access, refresh, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrRefreshInvalid) {
		Unauthorized("Refresh token is invalid or expired").Write(w)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, s.tokens(access, refresh))
}

// Logout always answers 204; an unknown token is already logged out.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	features := make([]FeatureAccess, 0, len(rbac.Features))
	for _, f := range rbac.AccessibleFeatures(sess.Role) {
		features = append(features, FeatureAccess{
			Feature:     f,
			Permissions: rbac.GetFeaturePermissions(sess.Role, f),
		})
	}

	middleware.GetLoggerFromContext(r.Context()).Debug("Session described", "features", len(features))
	writeJSON(w, http.StatusOK, MeResponse{User: sess, Features: features})
}

func (s *Server) tokens(access, refresh string) TokenResponse {
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}
}
