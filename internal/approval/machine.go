package approval

import (
	"fmt"
	"strings"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type transition struct {
	kind   Kind
	flow   Flow // empty for reports
	from   Status
	actor  rbac.Role
	action Action
	to     Status
}

// transitions is the whole state machine. Anything not listed is illegal.
var transitions = []transition{
	{KindPermit, FlowRTOnly, StatusPending, rbac.RoleRT, ActionApprove, StatusApproved},
	{KindPermit, FlowRTOnly, StatusPending, rbac.RoleRT, ActionReject, StatusRejected},

	{KindPermit, FlowTiered, StatusPending, rbac.RoleRT, ActionForward, StatusWaitingRWApproval},
	{KindPermit, FlowTiered, StatusPending, rbac.RoleRT, ActionReject, StatusRejected},
	{KindPermit, FlowTiered, StatusWaitingRWApproval, rbac.RoleRW, ActionApprove, StatusApproved},
	{KindPermit, FlowTiered, StatusWaitingRWApproval, rbac.RoleRW, ActionReject, StatusRejected},

	{KindPermit, FlowRWOnly, StatusPending, rbac.RoleRW, ActionApprove, StatusApproved},
	{KindPermit, FlowRWOnly, StatusPending, rbac.RoleRW, ActionReject, StatusRejected},

	{KindReport, "", StatusOpen, rbac.RoleRT, ActionStart, StatusInProgress},
	{KindReport, "", StatusInProgress, rbac.RoleRT, ActionResolve, StatusDone},
}

func matching(kind Kind, flow Flow, status Status) []transition {
	if kind == KindReport {
		flow = ""
	} else if flow == "" {
		flow = FlowRTOnly
	}
	var out []transition
	for _, t := range transitions {
		if t.kind == kind && t.flow == flow && t.from == status {
			out = append(out, t)
		}
	}
	return out
}

// Actions returns the transitions role may take right now, in table order.
func Actions(kind Kind, flow Flow, status Status, role rbac.Role) []Action {
	var actions []Action
	for _, t := range matching(kind, flow, status) {
		if t.actor == role {
			actions = append(actions, t.action)
		}
	}
	return actions
}

// Actors returns the roles that can act on a record in this state.
func Actors(kind Kind, flow Flow, status Status) []rbac.Role {
	var roles []rbac.Role
	for _, t := range matching(kind, flow, status) {
		if !containsRole(roles, t.actor) {
			roles = append(roles, t.actor)
		}
	}
	return roles
}

// Target returns the status an action leads to, or an IllegalTransition error
// explaining why the action is not available.
func Target(kind Kind, flow Flow, status Status, role rbac.Role, action Action) (Status, error) {
	if status.Terminal() {
		return "", apperr.Illegal("%s is already %s; no further transitions are allowed", kind, status)
	}

	var actors []rbac.Role
	for _, t := range matching(kind, flow, status) {
		if t.action != action {
			continue
		}
		if t.actor == role {
			return t.to, nil
		}
		actors = append(actors, t.actor)
	}

	if len(actors) == 0 {
		return "", apperr.Illegal("cannot %s a %s in status %s", action, describe(kind, flow), status)
	}
	return "", apperr.Illegal("only %s can %s a %s in status %s", joinRoles(actors), action, describe(kind, flow), status)
}

// Outlook is the informational side of a record for one viewer.
type Outlook struct {
	Actions    []Action
	Actionable bool
	Terminal   bool
	// Awaiting lists the roles that can act when the viewer cannot.
	Awaiting []rbac.Role
}

func OutlookFor(kind Kind, flow Flow, status Status, role rbac.Role) Outlook {
	o := Outlook{
		Actions:  Actions(kind, flow, status, role),
		Terminal: status.Terminal(),
	}
	o.Actionable = len(o.Actions) > 0
	if !o.Actionable && !o.Terminal {
		o.Awaiting = Actors(kind, flow, status)
	}
	return o
}

func describe(kind Kind, flow Flow) string {
	if kind == KindPermit && flow != "" {
		return fmt.Sprintf("%s permit", flow)
	}
	return string(kind)
}

func joinRoles(roles []rbac.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}

func containsRole(roles []rbac.Role, role rbac.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
