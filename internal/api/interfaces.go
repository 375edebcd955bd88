package api

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/live"
	"github.com/siwarga/rwrt-backend/internal/photos"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
	"github.com/siwarga/rwrt-backend/internal/requests"
	"github.com/siwarga/rwrt-backend/internal/store"
)

// RequestService is implemented by requests.Service
type RequestService interface {
	List(ctx context.Context, sess rbac.Session, kind approval.Kind, f requests.Filter) ([]requests.Item, error)
	Get(ctx context.Context, sess rbac.Session, kind approval.Kind, id string) (requests.Item, error)
	Transition(ctx context.Context, sess rbac.Session, kind approval.Kind, id string, cmd requests.Command) (requests.Item, error)
	Delete(ctx context.Context, sess rbac.Session, kind approval.Kind, id, reason string) error
	Resolver() *approval.Resolver
}

// ResidentService is implemented by residents.Service
type ResidentService interface {
	List(ctx context.Context, sess rbac.Session) ([]records.Resident, error)
	Get(ctx context.Context, sess rbac.Session, id string) (records.Resident, error)
	Create(ctx context.Context, sess rbac.Session, in records.ResidentInput) (records.Resident, error)
	Update(ctx context.Context, sess rbac.Session, id string, in records.ResidentInput) (records.Resident, error)
	Delete(ctx context.Context, sess rbac.Session, id string) error
}

// PhotoService is implemented by photos.Service
type PhotoService interface {
	Upload(ctx context.Context, sess rbac.Session, reportID string, file io.Reader, header *multipart.FileHeader) (photos.Photo, error)
}

// AccountService is implemented by accounts.Repository
type AccountService interface {
	List(ctx context.Context) ([]accounts.Account, error)
	Create(ctx context.Context, in accounts.NewAccount) (accounts.Account, error)
	Deactivate(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

// AuthService is implemented by auth.AuthService
type AuthService interface {
	Login(ctx context.Context, email, password string) (string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// LiveHub is implemented by live.Hub
type LiveHub interface {
	Snapshot(ctx context.Context, sess rbac.Session, c store.Collection) (live.Event, []string, error)
	Attach(conn *websocket.Conn, sess rbac.Session, c store.Collection, snapshot live.Event, ids []string)
}

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error
