// Package records defines the shapes of the documents the console works with
// and coerces loosely-typed store documents into them.
package records

import (
	"errors"
	"fmt"
	"time"

	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/store"
)

var ErrMalformed = errors.New("malformed record")

// Request is a resident report or permit request.
type Request struct {
	ID          string          `json:"id"`
	Kind        approval.Kind   `json:"kind"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Status      approval.Status `json:"status"`
	// Unit is the free-text address the resident entered; it embeds the RT code.
	Unit   string   `json:"unit"`
	Photos []string `json:"photos,omitempty"`

	RequesterID    string `json:"requesterId,omitempty"`
	RequesterName  string `json:"requesterName,omitempty"`
	RequesterEmail string `json:"requesterEmail,omitempty"`

	ApprovedByRT     *approval.Attribution `json:"approvedByRT,omitempty"`
	ApprovedByRW     *approval.Attribution `json:"approvedByRW,omitempty"`
	RejectedBy       *approval.Attribution `json:"rejectedBy,omitempty"`
	RejectionReason  string                `json:"rejectionReason,omitempty"`
	ProcessedBy      *approval.Attribution `json:"processedBy,omitempty"`
	ResolvedBy       *approval.Attribution `json:"resolvedBy,omitempty"`
	ResolutionNote   string                `json:"resolutionNote,omitempty"`
	ResolutionPhotos []string              `json:"resolutionPhotos,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r Request) AreaTag() string {
	return r.Unit
}

// State is the part of the request the approval machine needs.
func (r Request) State(flow approval.Flow) approval.State {
	return approval.State{
		ID:           r.ID,
		Kind:         r.Kind,
		Flow:         flow,
		Status:       r.Status,
		ApprovedByRT: r.ApprovedByRT,
		ApprovedByRW: r.ApprovedByRW,
	}
}

// CollectionFor maps a request kind to its collection.
func CollectionFor(kind approval.Kind) store.Collection {
	if kind == approval.KindReport {
		return store.Reports
	}
	return store.Permits
}

// DecodeRequest validates a store document as a request of kind. The status
// and the type (or category) are required; everything else is optional.
func DecodeRequest(kind approval.Kind, doc store.Document) (Request, error) {
	data := doc.Data
	if data == nil {
		return Request{}, fmt.Errorf("%w: %s %s has no data", ErrMalformed, kind, doc.ID)
	}

	rawStatus := text(data, "status")
	status, ok := approval.ParseStatus(rawStatus)
	if !ok {
		return Request{}, fmt.Errorf("%w: %s %s has unknown status %q", ErrMalformed, kind, doc.ID, rawStatus)
	}
	reqType := text(data, "type", "category", "permitType")
	if reqType == "" {
		return Request{}, fmt.Errorf("%w: %s %s has no type", ErrMalformed, kind, doc.ID)
	}

	r := Request{
		ID:          doc.ID,
		Kind:        kind,
		Type:        reqType,
		Description: text(data, "description", "title"),
		Status:      status,
		Unit:        text(data, "unit", "userUnit"),
		Photos:      stringList(data, "photos"),

		RequesterID:    text(data, "userId", "uid"),
		RequesterName:  text(data, "userName", "name"),
		RequesterEmail: text(data, "userEmail", "email"),

		ApprovedByRT:     attribution(data, "approvedByRT"),
		ApprovedByRW:     attribution(data, "approvedByRW"),
		RejectedBy:       attribution(data, "rejectedBy"),
		RejectionReason:  verbatim(data, "rejectionReason"),
		ProcessedBy:      attribution(data, "processedBy"),
		ResolvedBy:       attribution(data, "resolvedBy"),
		ResolutionNote:   verbatim(data, "resolutionNote"),
		ResolutionPhotos: stringList(data, "resolutionPhotos"),

		CreatedAt: timestamp(data, "createdAt", "timestamp"),
		UpdatedAt: doc.UpdatedAt,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = doc.CreatedAt
	}
	return r, nil
}
