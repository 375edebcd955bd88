package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/store"
)

// MemStore is an in-memory store.Store and store.Subscriber. Data goes through
// a JSON round trip so callers see the same shapes the Postgres store returns.
type MemStore struct {
	mu        sync.RWMutex
	docs      map[store.Collection]map[string]store.Document
	listeners []func(store.Change)
	failNext  error
	clock     time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		docs:  make(map[store.Collection]map[string]store.Document),
		clock: TimeNow(),
	}
}

// FailNext makes the next operation fail with apperr.ErrStoreUnavailable
func (m *MemStore) FailNext(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = cause
}

func (m *MemStore) takeFailure(op string) error {
	if m.failNext == nil {
		return nil
	}
	err := apperr.Unavailable(op, m.failNext)
	m.failNext = nil
	return err
}

// tick returns strictly increasing timestamps so ordering is deterministic
func (m *MemStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *MemStore) Add(ctx context.Context, c store.Collection, data map[string]any) (store.Document, error) {
	m.mu.Lock()
	if err := m.takeFailure("add"); err != nil {
		m.mu.Unlock()
		return store.Document{}, err
	}
	cloned, err := roundTrip(data)
	if err != nil {
		m.mu.Unlock()
		return store.Document{}, err
	}
	now := m.tick()
	doc := store.Document{ID: uuid.NewString(), Collection: c, Data: cloned, CreatedAt: now, UpdatedAt: now}
	if m.docs[c] == nil {
		m.docs[c] = make(map[string]store.Document)
	}
	m.docs[c][doc.ID] = doc
	m.mu.Unlock()

	m.emit(store.Change{Collection: c, ID: doc.ID, Op: store.OpInsert})
	return copyDoc(doc), nil
}

func (m *MemStore) Get(ctx context.Context, c store.Collection, id string) (store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("get"); err != nil {
		return store.Document{}, err
	}
	doc, ok := m.docs[c][id]
	if !ok {
		return store.Document{}, apperr.NotFound("document")
	}
	return copyDoc(doc), nil
}

func (m *MemStore) List(ctx context.Context, c store.Collection) ([]store.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure("list"); err != nil {
		return nil, err
	}
	out := make([]store.Document, 0, len(m.docs[c]))
	for _, doc := range m.docs[c] {
		out = append(out, copyDoc(doc))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemStore) Update(ctx context.Context, c store.Collection, id string, fields map[string]any, guard store.Guard) (store.Document, error) {
	m.mu.Lock()
	if err := m.takeFailure("update"); err != nil {
		m.mu.Unlock()
		return store.Document{}, err
	}
	doc, ok := m.docs[c][id]
	if !ok {
		m.mu.Unlock()
		return store.Document{}, apperr.NotFound("document")
	}
	if guard != nil {
		if err := guard(copyDoc(doc)); err != nil {
			m.mu.Unlock()
			return store.Document{}, err
		}
	}
	patch, err := roundTrip(fields)
	if err != nil {
		m.mu.Unlock()
		return store.Document{}, err
	}
	doc = copyDoc(doc)
	for k, v := range patch {
		doc.Data[k] = v
	}
	doc.UpdatedAt = m.tick()
	m.docs[c][id] = doc
	m.mu.Unlock()

	m.emit(store.Change{Collection: c, ID: id, Op: store.OpUpdate})
	return copyDoc(doc), nil
}

func (m *MemStore) Delete(ctx context.Context, c store.Collection, id string) error {
	m.mu.Lock()
	if err := m.takeFailure("delete"); err != nil {
		m.mu.Unlock()
		return err
	}
	if _, ok := m.docs[c][id]; !ok {
		m.mu.Unlock()
		return apperr.NotFound("document")
	}
	delete(m.docs[c], id)
	m.mu.Unlock()

	m.emit(store.Change{Collection: c, ID: id, Op: store.OpDelete})
	return nil
}

// Subscribe registers onChange and blocks until ctx is done
func (m *MemStore) Subscribe(ctx context.Context, onChange func(store.Change)) error {
	m.mu.Lock()
	m.listeners = append(m.listeners, onChange)
	m.mu.Unlock()

	<-ctx.Done()
	return nil
}

// Listeners reports how many subscribers are registered
func (m *MemStore) Listeners() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.listeners)
}

func (m *MemStore) emit(change store.Change) {
	m.mu.RLock()
	listeners := append([]func(store.Change){}, m.listeners...)
	m.mu.RUnlock()
	for _, l := range listeners {
		l(change)
	}
}

func roundTrip(data map[string]any) (map[string]any, error) {
	out := map[string]any{}
	if data == nil {
		return out, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func copyDoc(doc store.Document) store.Document {
	cloned, _ := roundTrip(doc.Data)
	doc.Data = cloned
	return doc
}
