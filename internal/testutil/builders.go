package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/accounts"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every account built by AccountBuilder
const DefaultPassword = "rahasia-123"

// AccountBuilder provides a fluent interface for creating admin accounts
type AccountBuilder struct {
	in     accounts.NewAccount
	testDB *TestDatabase
	t      *testing.T
}

// NewAccount creates a new account builder for an RW admin
func (tdb *TestDatabase) NewAccount(t *testing.T) *AccountBuilder {
	return &AccountBuilder{
		in: accounts.NewAccount{
			Email:    fmt.Sprintf("admin-%s@example.com", uuid.NewString()[:8]),
			Name:     "Test Admin",
			Password: DefaultPassword,
			Role:     rbac.RoleRW,
		},
		testDB: tdb,
		t:      t,
	}
}

func (ab *AccountBuilder) WithEmail(email string) *AccountBuilder {
	ab.in.Email = email
	return ab
}

func (ab *AccountBuilder) WithName(name string) *AccountBuilder {
	ab.in.Name = name
	return ab
}

// AsRT turns the account into the RT admin of area
func (ab *AccountBuilder) AsRT(area string) *AccountBuilder {
	ab.in.Role = rbac.RoleRT
	ab.in.AreaCode = area
	return ab
}

// Create inserts the account and returns it
func (ab *AccountBuilder) Create() accounts.Account {
	repo := accounts.NewRepository(ab.testDB.Pool(), bcrypt.MinCost)
	acc, err := repo.Create(context.Background(), ab.in)
	require.NoError(ab.t, err, "Failed to create account")
	return acc
}

// RequestBuilder creates report or permit documents the way the resident app
// writes them
type RequestBuilder struct {
	collection store.Collection
	data       map[string]any
	st         store.Store
	t          *testing.T
}

// NewPermit starts a PENDING permit of the given type in an RT area
func NewPermit(t *testing.T, st store.Store, permitType, area string) *RequestBuilder {
	return &RequestBuilder{
		collection: store.Permits,
		data: map[string]any{
			"type":        permitType,
			"description": "Mohon izin",
			"status":      "PENDING",
			"userName":    "Warga Test",
			"userEmail":   "warga@example.com",
			"userUnit":    "Blok A No. 3 RT " + area + " RW 05",
			"createdAt":   TimeNow().Format("2006-01-02T15:04:05Z07:00"),
		},
		st: st,
		t:  t,
	}
}

// NewReport starts an OPEN report in an RT area
func NewReport(t *testing.T, st store.Store, category, area string) *RequestBuilder {
	return &RequestBuilder{
		collection: store.Reports,
		data: map[string]any{
			"category":    category,
			"description": "Lampu jalan mati",
			"status":      "OPEN",
			"userName":    "Warga Test",
			"userEmail":   "warga@example.com",
			"unit":        "RT" + area + "/RW05 No. 7",
			"createdAt":   float64(TimeNow().UnixMilli()),
		},
		st: st,
		t:  t,
	}
}

// With sets an arbitrary field
func (rb *RequestBuilder) With(key string, value any) *RequestBuilder {
	rb.data[key] = value
	return rb
}

// Without removes a field
func (rb *RequestBuilder) Without(key string) *RequestBuilder {
	delete(rb.data, key)
	return rb
}

// Create adds the document to the store
func (rb *RequestBuilder) Create() store.Document {
	doc, err := rb.st.Add(context.Background(), rb.collection, rb.data)
	require.NoError(rb.t, err, "Failed to create %s document", rb.collection)
	return doc
}
