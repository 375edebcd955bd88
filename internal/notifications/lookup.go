package notifications

import (
	"context"

	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type adminEmails interface {
	ActiveEmails(ctx context.Context, role rbac.Role, area string) ([]string, error)
}

// NewAdminLookupFunc adapts the account registry.
func NewAdminLookupFunc(accts adminEmails) AdminLookupFunc {
	return accts.ActiveEmails
}
