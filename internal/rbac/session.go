package rbac

import "github.com/google/uuid"

// Session identifies the admin acting on a request. It is passed explicitly to
// every permission and scope check.
type Session struct {
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	AreaCode string    `json:"areaCode,omitempty"` // empty for RW
}

func (s Session) Can(key string) bool {
	return HasPermission(s.Role, key)
}

func (s Session) CanAccess(feature Feature) bool {
	return CanAccessFeature(s.Role, feature)
}

// DisplayName falls back to the email when the account has no name.
func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}
