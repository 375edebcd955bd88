// Package approval holds the permit/report state machine: which approval flow a
// permit type follows, which transitions each role may take, and the exact
// fields a transition writes.
package approval

import (
	"strings"
	"time"

	"github.com/siwarga/rwrt-backend/internal/rbac"
)

// Kind separates resident reports (complaints) from permit requests.
type Kind string

const (
	KindReport Kind = "report"
	KindPermit Kind = "permit"
)

func (k Kind) Valid() bool {
	return k == KindReport || k == KindPermit
}

// Flow is the approval path a permit type follows.
type Flow string

const (
	FlowRTOnly Flow = "RT_ONLY" // RT approval is final
	FlowTiered Flow = "TIERED"  // RT forwards, RW approves
	FlowRWOnly Flow = "RW_ONLY" // RW only, RT read-only
)

func ParseFlow(s string) (Flow, bool) {
	switch f := Flow(strings.ToUpper(strings.TrimSpace(s))); f {
	case FlowRTOnly, FlowTiered, FlowRWOnly:
		return f, true
	}
	return "", false
}

type Status string

const (
	StatusOpen              Status = "OPEN"
	StatusPending           Status = "PENDING"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusWaitingRWApproval Status = "WAITING_RW_APPROVAL"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
	StatusDone              Status = "DONE"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusOpen,
	StatusPending,
	StatusInProgress,
	StatusWaitingRWApproval,
	StatusApproved,
	StatusRejected,
	StatusDone,
}

// ParseStatus normalizes case and the "WAITING RW APPROVAL" spelling.
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, st := range Statuses {
		if Status(norm) == st {
			return st, true
		}
	}
	return "", false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusDone
}

// InitialStatus is the status a resident-submitted record starts in.
func InitialStatus(kind Kind) Status {
	if kind == KindReport {
		return StatusOpen
	}
	return StatusPending
}

type Action string

const (
	ActionApprove Action = "approve"
	ActionForward Action = "forward" // RT approval of a TIERED permit, pending RW
	ActionReject  Action = "reject"
	ActionStart   Action = "start"   // report OPEN -> IN_PROGRESS
	ActionResolve Action = "resolve" // report IN_PROGRESS -> DONE
)

func ParseAction(s string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionApprove, ActionForward, ActionReject, ActionStart, ActionResolve:
		return a, true
	}
	return "", false
}

// Attribution records who performed a step and when.
type Attribution struct {
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	Role   rbac.Role `json:"role"`
	At     time.Time `json:"at"`
}

func attribute(sess rbac.Session, at time.Time) *Attribution {
	return &Attribution{
		UserID: sess.UserID.String(),
		Name:   sess.DisplayName(),
		Role:   sess.Role,
		At:     at.UTC(),
	}
}
