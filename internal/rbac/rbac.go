package rbac

import "strings"

// Role is the administrative role of a console account.
type Role string

// Role names, as stored in admin_accounts.role
const (
	RoleRW Role = "RW" // Community administrator, global scope
	RoleRT Role = "RT" // Area administrator, scoped to one RT area code
)

// ParseRole accepts the role tag in any letter case.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleRW:
		return RoleRW, true
	case RoleRT:
		return RoleRT, true
	}
	return "", false
}

func (r Role) Valid() bool {
	return r == RoleRW || r == RoleRT
}

// Feature is a top-level section of the admin console.
type Feature string

const (
	FeatureDashboard  Feature = "dashboard"
	FeatureResidents  Feature = "resident-directory"
	FeatureFinance    Feature = "finance"
	FeatureRequests   Feature = "reports-and-permits"
	FeatureContent    Feature = "content"
	FeatureForum      Feature = "forum"
	FeatureDevice     Feature = "device-control"
	FeatureManagement Feature = "user-management"
)

// Features lists the catalog in menu order.
var Features = []Feature{
	FeatureDashboard,
	FeatureResidents,
	FeatureFinance,
	FeatureRequests,
	FeatureContent,
	FeatureForum,
	FeatureDevice,
	FeatureManagement,
}

var featureAccess = map[Feature][]Role{
	FeatureDashboard:  {RoleRW, RoleRT},
	FeatureResidents:  {RoleRW, RoleRT},
	FeatureFinance:    {RoleRW, RoleRT},
	FeatureRequests:   {RoleRW, RoleRT},
	FeatureContent:    {RoleRW, RoleRT},
	FeatureForum:      {RoleRW, RoleRT},
	FeatureDevice:     {RoleRW, RoleRT},
	FeatureManagement: {RoleRW},
}

// CanAccessFeature fails closed on an unknown feature or an empty role.
func CanAccessFeature(role Role, feature Feature) bool {
	return containsRole(featureAccess[feature], role)
}

// HasPermission fails closed on an unknown key or an empty role.
func HasPermission(role Role, key string) bool {
	return containsRole(permissionRoles[key], role)
}

// AccessibleFeatures returns the features the role can open, in menu order.
func AccessibleFeatures(role Role) []Feature {
	features := make([]Feature, 0, len(Features))
	for _, f := range Features {
		if CanAccessFeature(role, f) {
			features = append(features, f)
		}
	}
	return features
}

func containsRole(roles []Role, role Role) bool {
	if !role.Valid() {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
