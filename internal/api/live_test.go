package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siwarga/rwrt-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Live(t *testing.T) {
	env := newTestServer(t)
	testutil.NewReport(t, env.store, "Keamanan", "01").Create()

	t.Run("rejects collections that cannot be watched", func(t *testing.T) {
		resp := testutil.Do(t, env.handler, testutil.Request{
			Method:      http.MethodGet,
			Path:        "/live",
			QueryParams: map[string]string{"collection": "transactions"},
			User:        testutil.NewRW(),
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("upgrades and sends the snapshot", func(t *testing.T) {
		user := testutil.NewRT("01")
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			env.handler.ServeHTTP(w, r.WithContext(testutil.ContextWithUser(r.Context(), user)))
		}))
		defer srv.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live?collection=reports"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var snapshot struct {
			Type  string        `json:"type"`
			Items []interface{} `json:"items"`
		}
		require.NoError(t, conn.ReadJSON(&snapshot))
		assert.Equal(t, "snapshot", snapshot.Type)
		assert.Len(t, snapshot.Items, 1)
	})
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	assert.True(t, check(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	assert.True(t, originChecker(nil)(req))
}
