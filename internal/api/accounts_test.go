package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestServer_Accounts(t *testing.T) {
	rw := testutil.NewRW()

	t.Run("RT is denied", func(t *testing.T) {
		env := newTestServer(t)
		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodGet, Path: "/accounts", User: testutil.NewRT("01"),
		})
		assert.Equal(t, http.StatusForbidden, resp.Code)
		env.accounts.AssertNotCalled(t, "List", mock.Anything)
	})

	t.Run("RW lists", func(t *testing.T) {
		env := newTestServer(t)
		env.accounts.On("List", mock.Anything).Return([]accounts.Account{
			{ID: uuid.New(), Email: "rt01@example.com", Role: rbac.RoleRT, AreaCode: "01", Active: true},
		}, nil)

		resp := testutil.Do(t, env.handler, testutil.Request{Method: http.MethodGet, Path: "/accounts", User: rw})
		require.Equal(t, http.StatusOK, resp.Code)
		require.Len(t, resp.List, 1)
		assert.NotContains(t, resp.List[0], "passwordHash")
	})

	t.Run("create", func(t *testing.T) {
		env := newTestServer(t)
		in := accounts.NewAccount{Email: "rt02@example.com", Name: "Bu RT", Password: "rahasia-123", Role: rbac.RoleRT, AreaCode: "02"}
		env.accounts.On("Create", mock.Anything, in).
			Return(accounts.Account{ID: uuid.New(), Email: in.Email, Role: rbac.RoleRT, AreaCode: "02", Active: true}, nil)

		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodPost,
			Path:   "/accounts",
			User:   rw,
			Body: CreateAccountRequest{
				Email: in.Email, Name: in.Name, Password: in.Password, Role: "RT", AreaCode: "02",
			},
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		testutil.AssertJSON(t, resp, "areaCode", "02")
	})

	t.Run("second RT for an area conflicts", func(t *testing.T) {
		env := newTestServer(t)
		env.accounts.On("Create", mock.Anything, mock.Anything).
			Return(accounts.Account{}, apperr.Conflict("RT 02 already has an active account"))

		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodPost,
			Path:   "/accounts",
			User:   rw,
			Body:   CreateAccountRequest{Email: "x@example.com", Name: "X", Password: "rahasia-123", Role: "RT", AreaCode: "02"},
		})
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, CodeConflict, resp.ErrorCode())
	})

	t.Run("deactivate revokes sessions", func(t *testing.T) {
		env := newTestServer(t)
		id := uuid.New()
		env.accounts.On("Deactivate", mock.Anything, id).Return(accounts.Account{ID: id, Role: rbac.RoleRT, AreaCode: "03"}, nil)
		env.auth.On("RevokeAll", mock.Anything, id).Return(nil)

		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodDelete, Path: "/accounts/" + id.String(), User: rw,
		})
		require.Equal(t, http.StatusOK, resp.Code)
		testutil.AssertJSON(t, resp, "active", false)
		env.auth.AssertExpectations(t)
	})

	t.Run("revocation failure does not undo the deactivation", func(t *testing.T) {
		env := newTestServer(t)
		id := uuid.New()
		env.accounts.On("Deactivate", mock.Anything, id).Return(accounts.Account{ID: id}, nil)
		env.auth.On("RevokeAll", mock.Anything, id).Return(errors.New("redis down"))

		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodDelete, Path: "/accounts/" + id.String(), User: rw,
		})
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("cannot deactivate yourself", func(t *testing.T) {
		env := newTestServer(t)
		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodDelete, Path: "/accounts/" + rw.ID.String(), User: rw,
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		env := newTestServer(t)
		resp := testutil.Do(t, env.handler, testutil.Request{
			Method: http.MethodDelete, Path: "/accounts/not-a-uuid", User: rw,
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
