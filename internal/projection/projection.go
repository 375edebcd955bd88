// Package projection turns a record's workflow state into what the console
// shows a given viewer: a status badge and the actions they can take.
package projection

import (
	"fmt"
	"strings"

	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

type Badge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

type ActionView struct {
	Action approval.Action `json:"action"`
	Label  string          `json:"label"`
	// NeedsReason and NeedsNote tell the client which input the action requires.
	NeedsReason bool `json:"needsReason,omitempty"`
	NeedsNote   bool `json:"needsNote,omitempty"`
	Destructive bool `json:"destructive,omitempty"`
}

type View struct {
	Status     approval.Status `json:"status"`
	Flow       approval.Flow   `json:"flow,omitempty"`
	Badge      Badge           `json:"badge"`
	Actions    []ActionView    `json:"actions"`
	Actionable bool            `json:"actionable"`
	Terminal   bool            `json:"terminal"`
	Awaiting   []rbac.Role     `json:"awaiting,omitempty"`
	Info       string          `json:"info,omitempty"`
}

var badges = map[approval.Status]Badge{
	approval.StatusOpen:              {Label: "Baru", Class: "badge-info"},
	approval.StatusPending:           {Label: "Menunggu", Class: "badge-warning"},
	approval.StatusInProgress:        {Label: "Diproses", Class: "badge-primary"},
	approval.StatusWaitingRWApproval: {Label: "Menunggu Persetujuan RW", Class: "badge-warning"},
	approval.StatusApproved:          {Label: "Disetujui", Class: "badge-success"},
	approval.StatusRejected:          {Label: "Ditolak", Class: "badge-danger"},
	approval.StatusDone:              {Label: "Selesai", Class: "badge-success"},
}

var actionLabels = map[approval.Action]string{
	approval.ActionApprove: "Setujui",
	approval.ActionForward: "Teruskan ke RW",
	approval.ActionReject:  "Tolak",
	approval.ActionStart:   "Proses",
	approval.ActionResolve: "Selesaikan",
}

var flowLabels = map[approval.Flow]string{
	approval.FlowRTOnly: "Cukup persetujuan RT",
	approval.FlowTiered: "Persetujuan RT lalu RW",
	approval.FlowRWOnly: "Hanya persetujuan RW",
}

// BadgeFor returns the badge of a status. Unknown statuses render as-is.
func BadgeFor(status approval.Status) Badge {
	if b, ok := badges[status]; ok {
		return b
	}
	return Badge{Label: string(status), Class: "badge-secondary"}
}

func FlowLabel(flow approval.Flow) string {
	return flowLabels[flow]
}

// Project computes the view for one viewer. Legality comes from the approval
// package so the badge and the enabled actions cannot disagree.
func Project(kind approval.Kind, status approval.Status, flow approval.Flow, role rbac.Role) View {
	if kind == approval.KindReport {
		flow = ""
	} else if flow == "" {
		flow = approval.FlowRTOnly
	}

	o := approval.OutlookFor(kind, flow, status, role)
	v := View{
		Status:     status,
		Flow:       flow,
		Badge:      BadgeFor(status),
		Actions:    make([]ActionView, 0, len(o.Actions)),
		Actionable: o.Actionable,
		Terminal:   o.Terminal,
		Awaiting:   o.Awaiting,
	}
	for _, a := range o.Actions {
		v.Actions = append(v.Actions, ActionView{
			Action:      a,
			Label:       actionLabels[a],
			NeedsReason: a == approval.ActionReject,
			NeedsNote:   a == approval.ActionResolve,
			Destructive: a == approval.ActionReject,
		})
	}

	switch {
	case o.Terminal:
		v.Info = "Tidak ada tindakan lanjutan"
	case len(o.Awaiting) > 0:
		v.Info = fmt.Sprintf("Menunggu tindakan %s", joinRoles(o.Awaiting))
	}
	return v
}

func joinRoles(roles []rbac.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, "/")
}
