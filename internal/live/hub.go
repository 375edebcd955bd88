// Package live pushes record changes to connected admins over websockets.
// Every admin only ever receives what their own List/Get calls would return.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
	"github.com/siwarga/rwrt-backend/internal/requests"
	"github.com/siwarga/rwrt-backend/internal/store"
)

const (
	EventSnapshot = "snapshot"
	EventUpsert   = "upsert"
	EventRemove   = "remove"
)

// Event is one message on the socket.
type Event struct {
	Type       string           `json:"type"`
	Collection store.Collection `json:"collection"`
	ID         string           `json:"id,omitempty"`
	Item       any              `json:"item,omitempty"`
	Items      any              `json:"items,omitempty"`
}

type requestReader interface {
	List(ctx context.Context, sess rbac.Session, kind approval.Kind, f requests.Filter) ([]requests.Item, error)
	Get(ctx context.Context, sess rbac.Session, kind approval.Kind, id string) (requests.Item, error)
}

type residentReader interface {
	List(ctx context.Context, sess rbac.Session) ([]records.Resident, error)
	Get(ctx context.Context, sess rbac.Session, id string) (records.Resident, error)
}

// Streamable reports whether c can be watched.
func Streamable(c store.Collection) bool {
	switch c {
	case store.Permits, store.Reports, store.Residents:
		return true
	}
	return false
}

type Hub struct {
	feed      store.Subscriber
	requests  requestReader
	residents residentReader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub(feed store.Subscriber, reqs requestReader, residents residentReader) *Hub {
	return &Hub{
		feed:      feed,
		requests:  reqs,
		residents: residents,
		clients:   make(map[*client]struct{}),
	}
}

// Run follows the change feed until ctx is done, resubscribing with backoff
// when the feed drops. Clients get a fresh snapshot after every gap.
func (h *Hub) Run(ctx context.Context) {
	backoff := time.Second
	for {
		err := h.feed.Subscribe(ctx, func(c store.Change) { h.dispatch(ctx, c) })
		if ctx.Err() != nil {
			h.closeAll()
			return
		}
		logging.Warn("Change feed interrupted, resubscribing", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
		h.resync(ctx)
	}
}

// Snapshot loads what sess sees of c. It doubles as the permission check
// before a socket is accepted.
func (h *Hub) Snapshot(ctx context.Context, sess rbac.Session, c store.Collection) (Event, []string, error) {
	if !Streamable(c) {
		return Event{}, nil, apperr.Invalid("collection", "collection %q cannot be watched", c)
	}

	var (
		items any
		ids   []string
	)
	if c == store.Residents {
		list, err := h.residents.List(ctx, sess)
		if err != nil {
			return Event{}, nil, err
		}
		for _, r := range list {
			ids = append(ids, r.ID)
		}
		items = list
	} else {
		list, err := h.requests.List(ctx, sess, kindOf(c), requests.Filter{})
		if err != nil {
			return Event{}, nil, err
		}
		for _, it := range list {
			ids = append(ids, it.ID)
		}
		items = list
	}
	return Event{Type: EventSnapshot, Collection: c, Items: items}, ids, nil
}

// Attach registers an upgraded connection and starts its pumps. The snapshot
// is sent first.
func (h *Hub) Attach(conn *websocket.Conn, sess rbac.Session, c store.Collection, snapshot Event, ids []string) {
	cl := newClient(h, conn, sess, c)
	for _, id := range ids {
		cl.seen[id] = true
	}
	cl.sendEvent(snapshot)

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	logging.Info("Live client connected", "user_id", sess.UserID, "collection", c, "clients", h.Count())

	go cl.writePump()
	go cl.readPump()
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		close(cl.send)
		logging.Info("Live client disconnected", "user_id", cl.sess.UserID, "collection", cl.collection)
	}
}

func (h *Hub) watching(c store.Collection) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*client
	for cl := range h.clients {
		if cl.collection == c {
			out = append(out, cl)
		}
	}
	return out
}

func (h *Hub) dispatch(ctx context.Context, change store.Change) {
	for _, cl := range h.watching(change.Collection) {
		h.deliver(ctx, cl, change)
	}
}

// deliver re-reads the record as the client's admin. A record that left the
// admin's scope is announced as removed if they had seen it.
func (h *Hub) deliver(ctx context.Context, cl *client, change store.Change) {
	if change.Op == store.OpDelete {
		if cl.forget(change.ID) {
			cl.sendEvent(Event{Type: EventRemove, Collection: change.Collection, ID: change.ID})
		}
		return
	}

	item, err := h.fetch(ctx, cl.sess, change.Collection, change.ID)
	switch {
	case err == nil:
		cl.remember(change.ID)
		cl.sendEvent(Event{Type: EventUpsert, Collection: change.Collection, ID: change.ID, Item: item})
	case errors.Is(err, apperr.ErrAuthorizationDenied), errors.Is(err, apperr.ErrNotFound):
		if cl.forget(change.ID) {
			cl.sendEvent(Event{Type: EventRemove, Collection: change.Collection, ID: change.ID})
		}
	default:
		logging.Warn("Live update skipped", "collection", change.Collection, "id", change.ID, "error", err)
	}
}

func (h *Hub) fetch(ctx context.Context, sess rbac.Session, c store.Collection, id string) (any, error) {
	if c == store.Residents {
		return h.residents.Get(ctx, sess, id)
	}
	return h.requests.Get(ctx, sess, kindOf(c), id)
}

func (h *Hub) resync(ctx context.Context) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.RUnlock()

	for _, cl := range clients {
		snap, ids, err := h.Snapshot(ctx, cl.sess, cl.collection)
		if err != nil {
			logging.Warn("Live resync failed", "user_id", cl.sess.UserID, "error", err)
			continue
		}
		cl.reset(ids)
		cl.sendEvent(snap)
	}
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		_ = cl.conn.Close()
	}
}

func kindOf(c store.Collection) approval.Kind {
	if c == store.Reports {
		return approval.KindReport
	}
	return approval.KindPermit
}

func encode(e Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return data, nil
}
