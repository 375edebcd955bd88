// Package scope decides which records an admin may see, based on the RT area
// code embedded in a record's free-text unit field.
package scope

import (
	"strings"

	"github.com/siwarga/rwrt-backend/internal/rbac"
)

// Scoped is any record that carries a unit / userUnit text.
type Scoped interface {
	AreaTag() string
}

// MatchesArea reports whether unitText belongs to the RT area code. Unit texts
// are typed by hand, so "RT01", "RT 01" and "rt.01" are all accepted. This is a
// plain substring test: "RT012" also matches code "01".
func MatchesArea(unitText, code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false
	}
	unit := strings.ToUpper(unitText)
	for _, sep := range []string{"", " ", "."} {
		if strings.Contains(unit, "RT"+sep+code) {
			return true
		}
	}
	return false
}

// IsInScope reports whether the session may see the record.
func IsInScope(record Scoped, sess rbac.Session) bool {
	switch sess.Role {
	case rbac.RoleRW:
		return true
	case rbac.RoleRT:
		return MatchesArea(record.AreaTag(), sess.AreaCode)
	default:
		return false
	}
}

// FilterByScope returns records untouched for RW, the matching subset for RT
// and an empty slice for anything else.
func FilterByScope[T Scoped](records []T, sess rbac.Session) []T {
	switch sess.Role {
	case rbac.RoleRW:
		return records
	case rbac.RoleRT:
		out := make([]T, 0, len(records))
		for _, r := range records {
			if MatchesArea(r.AreaTag(), sess.AreaCode) {
				out = append(out, r)
			}
		}
		return out
	default:
		return []T{}
	}
}
