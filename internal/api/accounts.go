package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type CreateAccountRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	AreaCode string `json:"areaCode"`
}

func (s *Server) ListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if !sess.Can(rbac.UsersView) {
		PermissionDenied("Only the RW admin manages accounts").Write(w)
		return
	}

	list, err := s.accounts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) CreateAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if !sess.Can(rbac.UsersCreate) {
		PermissionDenied("Only the RW admin manages accounts").Write(w)
		return
	}

	var req CreateAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acc, err := s.accounts.Create(r.Context(), accounts.NewAccount{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     rbac.Role(req.Role),
		AreaCode: req.AreaCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.GetLoggerFromContext(r.Context()).Info("Account created",
		"account_id", acc.ID, "role", acc.Role, "area", acc.AreaCode, "actor", sess.UserID)
	writeJSON(w, http.StatusCreated, acc)
}

// DeactivateAccount frees the account's slot and ends all of its sessions.
func (s *Server) DeactivateAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if !sess.Can(rbac.UsersDelete) {
		PermissionDenied("Only the RW admin manages accounts").Write(w)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.Invalid("id", "account id must be a UUID"))
		return
	}
	if id == sess.UserID {
		writeError(w, r, apperr.Invalid("id", "you cannot deactivate your own account"))
		return
	}

	acc, err := s.accounts.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger := middleware.GetLoggerFromContext(r.Context())
	if err := s.auth.RevokeAll(r.Context(), id); err != nil {
		// the account is inactive either way; the authenticator rejects it
		logger.Warn("Failed to revoke sessions of deactivated account", "account_id", id, "error", err)
	}
	logger.Info("Account deactivated", "account_id", id, "role", acc.Role, "area", acc.AreaCode, "actor", sess.UserID)
	writeJSON(w, http.StatusOK, acc)
}
