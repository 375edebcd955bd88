package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"RW", RoleRW, true},
		{"rt", RoleRT, true},
		{" Rw ", RoleRW, true},
		{"", "", false},
		{"admin", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanAccessFeature(t *testing.T) {
	t.Run("every feature except user-management is reachable by both roles", func(t *testing.T) {
		for _, role := range []Role{RoleRW, RoleRT} {
			for _, f := range Features {
				want := f != FeatureManagement || role == RoleRW
				assert.Equal(t, want, CanAccessFeature(role, f), "role=%s feature=%s", role, f)
			}
		}
	})

	t.Run("unknown feature fails closed", func(t *testing.T) {
		assert.False(t, CanAccessFeature(RoleRW, Feature("billing")))
		assert.False(t, CanAccessFeature(RoleRT, Feature("")))
	})

	t.Run("absent role fails closed", func(t *testing.T) {
		for _, f := range Features {
			assert.False(t, CanAccessFeature("", f))
			assert.False(t, CanAccessFeature(Role("resident"), f))
		}
	})
}

func TestHasPermission(t *testing.T) {
	t.Run("residents are written by RT only", func(t *testing.T) {
		for _, key := range []string{ResidentsCreate, ResidentsEdit, ResidentsDelete} {
			assert.True(t, HasPermission(RoleRT, key), key)
			assert.False(t, HasPermission(RoleRW, key), key)
		}
		assert.True(t, HasPermission(RoleRW, ResidentsViewAll))
		assert.False(t, HasPermission(RoleRT, ResidentsViewAll))
	})

	t.Run("finance writes are shared, global view is RW only", func(t *testing.T) {
		for _, key := range []string{FinanceCreate, FinanceEdit, FinanceDelete} {
			assert.True(t, HasPermission(RoleRT, key), key)
			assert.True(t, HasPermission(RoleRW, key), key)
		}
		assert.True(t, HasPermission(RoleRW, FinanceViewAll))
		assert.False(t, HasPermission(RoleRT, FinanceViewAll))
	})

	t.Run("administrative deletion of requests is RW only", func(t *testing.T) {
		assert.True(t, HasPermission(RoleRW, PermitsDelete))
		assert.True(t, HasPermission(RoleRW, ReportsDelete))
		assert.False(t, HasPermission(RoleRT, PermitsDelete))
		assert.False(t, HasPermission(RoleRT, ReportsDelete))
	})

	t.Run("unknown key or absent role fails closed", func(t *testing.T) {
		assert.False(t, HasPermission(RoleRW, "residents.teleport"))
		assert.False(t, HasPermission("", DashboardView))
	})

	t.Run("every key is granted to at least one role", func(t *testing.T) {
		for _, key := range PermissionKeys() {
			assert.True(t, HasPermission(RoleRW, key) || HasPermission(RoleRT, key), key)
		}
	})
}

func TestGetFeaturePermissions(t *testing.T) {
	t.Run("agrees with HasPermission for every role and feature", func(t *testing.T) {
		for _, role := range []Role{RoleRW, RoleRT, ""} {
			for _, f := range Features {
				fp := GetFeaturePermissions(role, f)
				keys := featurePermissionKeys[f]

				viewAll := keys.viewAll != "" && HasPermission(role, keys.viewAll)
				viewOwn := keys.viewOwn != "" && HasPermission(role, keys.viewOwn)
				accessible := CanAccessFeature(role, f)

				assert.Equal(t, accessible && (viewAll || viewOwn), fp.CanView, "view role=%s feature=%s", role, f)
				assert.Equal(t, accessible && keys.create != "" && HasPermission(role, keys.create), fp.CanCreate, "create role=%s feature=%s", role, f)
				assert.Equal(t, accessible && keys.edit != "" && HasPermission(role, keys.edit), fp.CanEdit, "edit role=%s feature=%s", role, f)
				assert.Equal(t, accessible && keys.delete != "" && HasPermission(role, keys.delete), fp.CanDelete, "delete role=%s feature=%s", role, f)

				switch {
				case !fp.CanView:
					assert.Equal(t, ScopeNone, fp.Scope)
				case viewAll:
					assert.Equal(t, ScopeAll, fp.Scope)
				default:
					assert.Equal(t, ScopeOwn, fp.Scope)
				}

				if fp.CanView {
					assert.True(t, accessible, "viewable feature must be accessible: role=%s feature=%s", role, f)
				}
			}
		}
	})

	t.Run("resident directory scopes", func(t *testing.T) {
		rw := GetFeaturePermissions(RoleRW, FeatureResidents)
		assert.Equal(t, FeaturePermissions{CanView: true, Scope: ScopeAll}, rw)

		rt := GetFeaturePermissions(RoleRT, FeatureResidents)
		assert.Equal(t, FeaturePermissions{CanView: true, CanCreate: true, CanEdit: true, CanDelete: true, Scope: ScopeOwn}, rt)
	})

	t.Run("user management is hidden from RT", func(t *testing.T) {
		assert.Equal(t, FeaturePermissions{Scope: ScopeNone}, GetFeaturePermissions(RoleRT, FeatureManagement))
		assert.True(t, GetFeaturePermissions(RoleRW, FeatureManagement).CanCreate)
	})

	t.Run("every catalog feature has a key table", func(t *testing.T) {
		for _, f := range Features {
			_, ok := featurePermissionKeys[f]
			assert.True(t, ok, f)
		}
	})
}

func TestAccessibleFeatures(t *testing.T) {
	assert.Len(t, AccessibleFeatures(RoleRW), len(Features))
	assert.NotContains(t, AccessibleFeatures(RoleRT), FeatureManagement)
	assert.Empty(t, AccessibleFeatures(""))
}

func TestSession(t *testing.T) {
	s := Session{Email: "rt01@warga.id", Role: RoleRT, AreaCode: "01"}
	assert.Equal(t, "rt01@warga.id", s.DisplayName())
	assert.True(t, s.Can(ResidentsCreate))
	assert.False(t, s.CanAccess(FeatureManagement))

	s.Name = "Pak RT"
	assert.Equal(t, "Pak RT", s.DisplayName())
}
