package approval

import (
	"strings"
	"time"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/rbac"
)

// MaxResolutionPhotos caps the photos attached when a report is resolved.
const MaxResolutionPhotos = 5

// PhotoKeyPrefix is the storage prefix of every resolution photo of a report.
func PhotoKeyPrefix(reportID string) string {
	return "reports/" + reportID + "/"
}

// State is the part of a record the state machine looks at.
type State struct {
	ID           string
	Kind         Kind
	Flow         Flow
	Status       Status
	ApprovedByRT *Attribution
	ApprovedByRW *Attribution
}

// Decision is a transition command issued by an admin.
type Decision struct {
	Action Action
	Actor  rbac.Session
	Reason string   // reject
	Note   string   // resolve
	Photos []string // resolve, storage keys
	At     time.Time
}

// Patch holds every field a transition writes. It is written as one update so
// status and attribution never diverge.
type Patch struct {
	From Status
	To   Status

	ApprovedByRT     *Attribution
	ApprovedByRW     *Attribution
	RejectedBy       *Attribution
	RejectionReason  string
	ProcessedBy      *Attribution
	ResolvedBy       *Attribution
	ResolutionNote   string
	ResolutionPhotos []string
}

// Plan checks legality first, then the decision's inputs, and returns the patch.
func Plan(st State, d Decision) (Patch, error) {
	to, err := Target(st.Kind, st.Flow, st.Status, d.Actor.Role, d.Action)
	if err != nil {
		return Patch{}, err
	}
	if err := validate(st, d); err != nil {
		return Patch{}, err
	}

	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	by := attribute(d.Actor, at)
	p := Patch{From: st.Status, To: to}

	switch d.Action {
	case ActionApprove, ActionForward:
		// an earlier tier's attribution is never overwritten
		switch d.Actor.Role {
		case rbac.RoleRT:
			if st.ApprovedByRT == nil {
				p.ApprovedByRT = by
			}
		case rbac.RoleRW:
			if st.ApprovedByRW == nil {
				p.ApprovedByRW = by
			}
		}
	case ActionReject:
		p.RejectedBy = by
		p.RejectionReason = d.Reason
	case ActionStart:
		p.ProcessedBy = by
	case ActionResolve:
		p.ResolvedBy = by
		p.ResolutionNote = d.Note
		p.ResolutionPhotos = append([]string{}, d.Photos...)
	}
	return p, nil
}

func validate(st State, d Decision) error {
	switch d.Action {
	case ActionReject:
		if strings.TrimSpace(d.Reason) == "" {
			return apperr.Invalid("reason", "a rejection reason is required")
		}
	case ActionResolve:
		if strings.TrimSpace(d.Note) == "" {
			return apperr.Invalid("note", "a resolution note is required")
		}
		if len(d.Photos) > MaxResolutionPhotos {
			return apperr.Invalid("photos", "at most %d photos can be attached, got %d", MaxResolutionPhotos, len(d.Photos))
		}
		for _, p := range d.Photos {
			if strings.TrimSpace(p) == "" {
				return apperr.Invalid("photos", "photo references must not be empty")
			}
			if !strings.HasPrefix(p, PhotoKeyPrefix(st.ID)) || len(p) == len(PhotoKeyPrefix(st.ID)) {
				return apperr.Invalid("photos", "photo %q was not uploaded for this report", p)
			}
		}
	}
	return nil
}

// Fields renders the patch as the document fields to update.
func (p Patch) Fields() map[string]any {
	fields := map[string]any{"status": string(p.To)}
	if p.ApprovedByRT != nil {
		fields["approvedByRT"] = p.ApprovedByRT
	}
	if p.ApprovedByRW != nil {
		fields["approvedByRW"] = p.ApprovedByRW
	}
	if p.RejectedBy != nil {
		fields["rejectedBy"] = p.RejectedBy
		fields["rejectionReason"] = p.RejectionReason
	}
	if p.ProcessedBy != nil {
		fields["processedBy"] = p.ProcessedBy
	}
	if p.ResolvedBy != nil {
		fields["resolvedBy"] = p.ResolvedBy
		fields["resolutionNote"] = p.ResolutionNote
		fields["resolutionPhotos"] = p.ResolutionPhotos
	}
	return fields
}
