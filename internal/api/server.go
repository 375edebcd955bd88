package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type Server struct {
	requests  RequestService
	residents ResidentService
	photos    PhotoService
	accounts  AccountService
	auth      AuthService
	hub       LiveHub
	checks    map[string]PingFunc
	accessTTL time.Duration
	upgrader  websocket.Upgrader
}

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Requests  RequestService
	Residents ResidentService
	Photos    PhotoService
	Accounts  AccountService
	Auth      AuthService
	Hub       LiveHub
	// Checks are the dependencies probed by /ready, keyed by name.
	Checks map[string]PingFunc
	// AccessTTL is reported to clients as expiresIn.
	AccessTTL time.Duration
	// AllowedOrigins limits websocket upgrades; empty allows any origin.
	AllowedOrigins []string
}

func NewServer(d Deps) *Server {
	return &Server{
		requests:  d.Requests,
		residents: d.Residents,
		photos:    d.Photos,
		accounts:  d.Accounts,
		auth:      d.Auth,
		hub:       d.Hub,
		checks:    d.Checks,
		accessTTL: d.AccessTTL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(d.AllowedOrigins),
		},
	}
}

// Middlewares wrap the two route groups: API routes go through the OpenAPI
// validator (which also authenticates), the websocket route through plain
// bearer authentication.
type Middlewares struct {
	Validator    func(http.Handler) http.Handler
	Authenticate func(http.Handler) http.Handler
}

// Mount registers every route on r.
func (s *Server) Mount(r chi.Router, mw Middlewares) {
	r.Group(func(r chi.Router) {
		if mw.Validator != nil {
			r.Use(mw.Validator)
		}

		r.Get("/health", s.HealthCheck)
		r.Get("/ready", s.ReadinessCheck)

		r.Post("/auth/login", s.Login)
		r.Post("/auth/refresh", s.RefreshToken)
		r.Post("/auth/logout", s.Logout)
		r.Get("/me", s.GetMe)

		r.Get("/permit-types", s.ListPermitTypes)

		r.Route("/permits", s.requestRoutes(kindPermit))
		r.Route("/reports", func(r chi.Router) {
			s.requestRoutes(kindReport)(r)
			r.Post("/{id}/photos", s.UploadReportPhoto)
		})

		r.Route("/residents", func(r chi.Router) {
			r.Get("/", s.ListResidents)
			r.Post("/", s.CreateResident)
			r.Get("/{id}", s.GetResident)
			r.Patch("/{id}", s.UpdateResident)
			r.Delete("/{id}", s.DeleteResident)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.ListAccounts)
			r.Post("/", s.CreateAccount)
			r.Delete("/{id}", s.DeactivateAccount)
		})
	})

	r.Group(func(r chi.Router) {
		if mw.Authenticate != nil {
			r.Use(mw.Authenticate)
		}
		r.Get("/live", s.Live)
	})
}

// Handler is a bare router for tests and tools that do not need the
// validator.
func (s *Server) Handler(mw Middlewares) http.Handler {
	r := chi.NewRouter()
	s.Mount(r, mw)
	return r
}
