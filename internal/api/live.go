package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/siwarga/rwrt-backend/internal/store"
)

// Live upgrades to a websocket streaming one collection. The snapshot is
// loaded before the upgrade so permission failures still get a JSON error.
func (s *Server) Live(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	c := store.Collection(r.URL.Query().Get("collection"))
	snapshot, ids, err := s.hub.Snapshot(r.Context(), sess, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		return
	}
	s.hub.Attach(conn, sess, c, snapshot, ids)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || set["*"] {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[u.Scheme+"://"+u.Host]
	}
}
