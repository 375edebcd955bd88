package rbac

// permission keys, one table row each in permissionRoles
const (
	DashboardView = "dashboard.view" // Open the dashboard tiles

	ResidentsViewAll = "residents.view_all" // Residents across every RT
	ResidentsViewOwn = "residents.view_own" // Residents of the admin's own RT
	ResidentsCreate  = "residents.create"
	ResidentsEdit    = "residents.edit"
	ResidentsDelete  = "residents.delete"

	FinanceViewAll = "finance.view_all" // Community-wide ledger
	FinanceViewOwn = "finance.view_own" // Ledger entries of the admin's own RT
	FinanceCreate  = "finance.create"
	FinanceEdit    = "finance.edit"
	FinanceDelete  = "finance.delete"

	ReportsViewAll = "reports.view_all"
	ReportsViewOwn = "reports.view_own"
	ReportsProcess = "reports.process" // Move a report to in-progress / done
	ReportsDelete  = "reports.delete"  // Administrative removal, outside the state machine

	PermitsViewAll = "permits.view_all"
	PermitsViewOwn = "permits.view_own"
	PermitsDecide  = "permits.decide" // Approve, forward or reject; the flow decides which tier may act
	PermitsDelete  = "permits.delete"

	ContentView   = "content.view"
	ContentCreate = "content.create" // Announcements and events
	ContentEdit   = "content.edit"
	ContentDelete = "content.delete"

	ForumView     = "forum.view"
	ForumPost     = "forum.post"
	ForumModerate = "forum.moderate"
	ForumDelete   = "forum.delete"

	DeviceView    = "device.view"
	DeviceControl = "device.control" // Open/close the gate

	UsersView   = "users.view"
	UsersCreate = "users.create"
	UsersEdit   = "users.edit"
	UsersDelete = "users.delete"

	FeeConfigEdit = "fees.edit" // Monthly dues configuration
)

var (
	rwOnly = []Role{RoleRW}
	rtOnly = []Role{RoleRT}
	both   = []Role{RoleRW, RoleRT}
)

var permissionRoles = map[string][]Role{
	DashboardView: both,

	ResidentsViewAll: rwOnly,
	ResidentsViewOwn: rtOnly,
	ResidentsCreate:  rtOnly,
	ResidentsEdit:    rtOnly,
	ResidentsDelete:  rtOnly,

	FinanceViewAll: rwOnly,
	FinanceViewOwn: rtOnly,
	FinanceCreate:  both,
	FinanceEdit:    both,
	FinanceDelete:  both,

	ReportsViewAll: rwOnly,
	ReportsViewOwn: rtOnly,
	ReportsProcess: rtOnly,
	ReportsDelete:  rwOnly,

	PermitsViewAll: rwOnly,
	PermitsViewOwn: rtOnly,
	PermitsDecide:  both,
	PermitsDelete:  rwOnly,

	ContentView:   both,
	ContentCreate: both,
	ContentEdit:   both,
	ContentDelete: both,

	ForumView:     both,
	ForumPost:     both,
	ForumModerate: both,
	ForumDelete:   both,

	DeviceView:    both,
	DeviceControl: both,

	UsersView:   rwOnly,
	UsersCreate: rwOnly,
	UsersEdit:   rwOnly,
	UsersDelete: rwOnly,

	FeeConfigEdit: rwOnly,
}

// PermissionKeys returns every key of the catalog.
func PermissionKeys() []string {
	keys := make([]string, 0, len(permissionRoles))
	for k := range permissionRoles {
		keys = append(keys, k)
	}
	return keys
}

// Scope describes how much of a feature's data a role sees.
type Scope string

const (
	ScopeAll  Scope = "all"
	ScopeOwn  Scope = "own"
	ScopeNone Scope = "none"
)

// FeaturePermissions is the denormalized per-feature view handed to the console.
type FeaturePermissions struct {
	CanView   bool  `json:"canView"`
	CanCreate bool  `json:"canCreate"`
	CanEdit   bool  `json:"canEdit"`
	CanDelete bool  `json:"canDelete"`
	Scope     Scope `json:"scope"`
}

// featureKeys names the permission keys behind each column of FeaturePermissions.
// An empty key means the column is never granted for that feature.
type featureKeys struct {
	viewAll string
	viewOwn string
	create  string
	edit    string
	delete  string
}

var featurePermissionKeys = map[Feature]featureKeys{
	FeatureDashboard: {viewAll: DashboardView},
	FeatureResidents: {
		viewAll: ResidentsViewAll, viewOwn: ResidentsViewOwn,
		create: ResidentsCreate, edit: ResidentsEdit, delete: ResidentsDelete,
	},
	FeatureFinance: {
		viewAll: FinanceViewAll, viewOwn: FinanceViewOwn,
		create: FinanceCreate, edit: FinanceEdit, delete: FinanceDelete,
	},
	// permits are created by residents, so admins never get canCreate here
	FeatureRequests: {
		viewAll: PermitsViewAll, viewOwn: PermitsViewOwn,
		edit: PermitsDecide, delete: PermitsDelete,
	},
	FeatureContent: {viewAll: ContentView, create: ContentCreate, edit: ContentEdit, delete: ContentDelete},
	FeatureForum:   {viewAll: ForumView, create: ForumPost, edit: ForumModerate, delete: ForumDelete},
	FeatureDevice:  {viewAll: DeviceView, edit: DeviceControl},
	FeatureManagement: {
		viewAll: UsersView, create: UsersCreate, edit: UsersEdit, delete: UsersDelete,
	},
}

// GetFeaturePermissions derives the per-feature view from HasPermission.
func GetFeaturePermissions(role Role, feature Feature) FeaturePermissions {
	keys, ok := featurePermissionKeys[feature]
	if !ok || !CanAccessFeature(role, feature) {
		return FeaturePermissions{Scope: ScopeNone}
	}

	fp := FeaturePermissions{
		CanCreate: granted(role, keys.create),
		CanEdit:   granted(role, keys.edit),
		CanDelete: granted(role, keys.delete),
		Scope:     ScopeNone,
	}
	switch {
	case granted(role, keys.viewAll):
		fp.CanView = true
		fp.Scope = ScopeAll
	case granted(role, keys.viewOwn):
		fp.CanView = true
		fp.Scope = ScopeOwn
	}
	return fp
}

func granted(role Role, key string) bool {
	return key != "" && HasPermission(role, key)
}
