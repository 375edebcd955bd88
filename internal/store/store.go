// Package store persists plain JSON documents in named collections. Every
// operation touches a single document and is atomic; writes are announced on a
// change feed.
package store

import (
	"context"
	"time"
)

type Collection string

const (
	Residents     Collection = "residents"
	Transactions  Collection = "transactions"
	Events        Collection = "events"
	Announcements Collection = "announcements"
	Reports       Collection = "reports"
	Permits       Collection = "permits"
	ForumPosts    Collection = "forum_posts"
	ForumComments Collection = "forum_comments"
	DeviceState   Collection = "device_state"
	AdminAccounts Collection = "admin_accounts"
	FeeConfig     Collection = "fee_config"
)

var Collections = []Collection{
	Residents, Transactions, Events, Announcements, Reports, Permits,
	ForumPosts, ForumComments, DeviceState, AdminAccounts, FeeConfig,
}

func (c Collection) Valid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

type Document struct {
	ID         string         `json:"id"`
	Collection Collection     `json:"collection"`
	Data       map[string]any `json:"data"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// Guard inspects the locked current version of a document before an update.
// A non-nil error aborts the update and is returned to the caller unchanged.
type Guard func(current Document) error

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type Change struct {
	Collection Collection `json:"collection"`
	ID         string     `json:"id"`
	Op         Op         `json:"op"`
}

// Store is implemented by Postgres and by the in-memory store used in tests.
// Missing documents yield apperr.ErrNotFound, backend failures
// apperr.ErrStoreUnavailable.
type Store interface {
	Add(ctx context.Context, c Collection, data map[string]any) (Document, error)
	Get(ctx context.Context, c Collection, id string) (Document, error)
	// List returns every document of c, newest first.
	List(ctx context.Context, c Collection) ([]Document, error)
	Update(ctx context.Context, c Collection, id string, fields map[string]any, guard Guard) (Document, error)
	Delete(ctx context.Context, c Collection, id string) error
}

// Subscriber delivers changes until ctx is cancelled.
type Subscriber interface {
	Subscribe(ctx context.Context, onChange func(Change)) error
}
