package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/live"
	"github.com/siwarga/rwrt-backend/internal/photos"
	"github.com/siwarga/rwrt-backend/internal/requests"
	"github.com/siwarga/rwrt-backend/internal/residents"
	"github.com/siwarga/rwrt-backend/internal/testutil"
)

// testEnv is a server over the in-memory store with mocked identity and
// object storage.
type testEnv struct {
	server   *Server
	handler  http.Handler
	store    *testutil.MemStore
	auth     *testutil.MockAuthService
	accounts *testutil.MockAccountService
	objects  *testutil.MockObjectStore
	checks   map[string]PingFunc
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	st := testutil.NewMemStore()
	reqs := requests.NewService(st, approval.NewResolver(nil), nil)
	res := residents.NewService(st)
	objects := testutil.NewMockObjectStore(t)
	authSvc := testutil.NewMockAuthService(t)
	accts := testutil.NewMockAccountService(t)
	checks := map[string]PingFunc{
		"database": func(context.Context) error { return nil },
	}

	server := NewServer(Deps{
		Requests:  reqs,
		Residents: res,
		Photos:    photos.NewService(objects, reqs, time.Minute),
		Accounts:  accts,
		Auth:      authSvc,
		Hub:       live.NewHub(st, reqs, res),
		Checks:    checks,
		AccessTTL: 15 * time.Minute,
	})

	return &testEnv{
		server:   server,
		handler:  server.Handler(Middlewares{}),
		store:    st,
		auth:     authSvc,
		accounts: accts,
		objects:  objects,
		checks:   checks,
	}
}
