// Package requests runs the report and permit workflow against the document
// store: permission and scope checks, the approval machine, and a single
// guarded write per transition.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/projection"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
	"github.com/siwarga/rwrt-backend/internal/scope"
	"github.com/siwarga/rwrt-backend/internal/store"
)

// Notifier is told about every committed transition.
type Notifier interface {
	Transitioned(ctx context.Context, req records.Request, from approval.Status)
}

// Command is a transition request as it arrives from the API.
type Command struct {
	Action string   `json:"action"`
	Reason string   `json:"reason,omitempty"`
	Note   string   `json:"note,omitempty"`
	Photos []string `json:"photos,omitempty"`
}

// Item is a request together with what the viewer can see and do with it.
type Item struct {
	records.Request
	Flow      approval.Flow   `json:"flow,omitempty"`
	FlowLabel string          `json:"flowLabel,omitempty"`
	View      projection.View `json:"view"`
}

type Filter struct {
	Status approval.Status
}

type Service struct {
	store    store.Store
	resolver *approval.Resolver
	notifier Notifier
	now      func() time.Time
}

func NewService(st store.Store, resolver *approval.Resolver, notifier Notifier) *Service {
	return &Service{
		store:    st,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
	}
}

// Resolver exposes the flow classification used by the service.
func (s *Service) Resolver() *approval.Resolver {
	return s.resolver
}

type keys struct {
	viewAll, viewOwn, act, remove string
}

func keysFor(kind approval.Kind) keys {
	if kind == approval.KindReport {
		return keys{rbac.ReportsViewAll, rbac.ReportsViewOwn, rbac.ReportsProcess, rbac.ReportsDelete}
	}
	return keys{rbac.PermitsViewAll, rbac.PermitsViewOwn, rbac.PermitsDecide, rbac.PermitsDelete}
}

func canView(sess rbac.Session, kind approval.Kind) bool {
	k := keysFor(kind)
	return sess.Can(k.viewAll) || sess.Can(k.viewOwn)
}

// ItemFor projects req for the viewer.
func (s *Service) ItemFor(sess rbac.Session, req records.Request) Item {
	flow := s.resolver.FlowFor(req.Kind, req.Type)
	return Item{
		Request:   req,
		Flow:      flow,
		FlowLabel: projection.FlowLabel(flow),
		View:      projection.Project(req.Kind, req.Status, flow, sess.Role),
	}
}

// List returns the requests of kind visible to sess, newest first. Documents
// that cannot be decoded are skipped and logged.
func (s *Service) List(ctx context.Context, sess rbac.Session, kind approval.Kind, f Filter) ([]Item, error) {
	if !canView(sess, kind) {
		return nil, apperr.Denied("your role cannot view %ss", kind)
	}

	docs, err := s.store.List(ctx, records.CollectionFor(kind))
	if err != nil {
		return nil, err
	}

	logger := middleware.GetLoggerFromContext(ctx)
	reqs := make([]records.Request, 0, len(docs))
	for _, doc := range docs {
		req, err := records.DecodeRequest(kind, doc)
		if err != nil {
			logger.Warn("Skipping malformed record", "kind", kind, "id", doc.ID, "error", err)
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		reqs = append(reqs, req)
	}

	visible := scope.FilterByScope(reqs, sess)
	items := make([]Item, 0, len(visible))
	for _, req := range visible {
		items = append(items, s.ItemFor(sess, req))
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, sess rbac.Session, kind approval.Kind, id string) (Item, error) {
	if !canView(sess, kind) {
		return Item{}, apperr.Denied("your role cannot view %ss", kind)
	}
	req, err := s.load(ctx, sess, kind, id)
	if err != nil {
		return Item{}, err
	}
	return s.ItemFor(sess, req), nil
}

// Transition applies cmd to the request. Nothing is written unless the
// transition is legal and its inputs valid; status and attribution are
// written in one guarded update. Commands against a terminal record fail as
// illegal transitions for every role and action.
func (s *Service) Transition(ctx context.Context, sess rbac.Session, kind approval.Kind, id string, cmd Command) (Item, error) {
	logger := middleware.GetLoggerFromContext(ctx)

	if !canView(sess, kind) {
		return Item{}, apperr.Denied("your role cannot view %ss", kind)
	}
	req, err := s.load(ctx, sess, kind, id)
	if err != nil {
		return Item{}, err
	}

	// a closed record refuses every command, whoever sends it
	if req.Status.Terminal() {
		logger.Info("Transition refused", "kind", kind, "id", id, "action", cmd.Action, "status", req.Status)
		return Item{}, apperr.Illegal("%s %s is already %s; no further transitions are allowed", kind, id, req.Status)
	}
	if !sess.Can(keysFor(kind).act) {
		return Item{}, apperr.Denied("your role cannot act on %ss", kind)
	}
	action, ok := approval.ParseAction(cmd.Action)
	if !ok {
		return Item{}, apperr.Invalid("action", "unknown action %q", cmd.Action)
	}

	flow := s.resolver.FlowFor(kind, req.Type)
	patch, err := approval.Plan(req.State(flow), approval.Decision{
		Action: action,
		Actor:  sess,
		Reason: cmd.Reason,
		Note:   cmd.Note,
		Photos: cmd.Photos,
		At:     s.now(),
	})
	if err != nil {
		logger.Info("Transition refused",
			"kind", kind, "id", id, "action", action, "status", req.Status, "flow", flow, "error", err)
		return Item{}, err
	}

	doc, err := s.store.Update(ctx, records.CollectionFor(kind), id, patch.Fields(), expectStatus(kind, patch.From))
	if err != nil {
		if apperr.Retryable(err) {
			logger.Warn("Transition not written", "kind", kind, "id", id, "action", action, "error", err)
		}
		return Item{}, err
	}

	updated, err := records.DecodeRequest(kind, doc)
	if err != nil {
		return Item{}, fmt.Errorf("decode %s %s after update: %w", kind, id, err)
	}

	logger.Info("Request transitioned",
		"kind", kind, "id", id, "action", action, "from", patch.From, "to", patch.To,
		"flow", flow, "actor", sess.UserID, "role", sess.Role)

	if s.notifier != nil {
		s.notifier.Transitioned(ctx, updated, patch.From)
	}
	return s.ItemFor(sess, updated), nil
}

// Delete removes a request outside the state machine. It needs the delete
// permission and a reason.
func (s *Service) Delete(ctx context.Context, sess rbac.Session, kind approval.Kind, id, reason string) error {
	if !sess.Can(keysFor(kind).remove) {
		return apperr.Denied("your role cannot delete %ss", kind)
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.Invalid("reason", "a deletion reason is required")
	}

	req, err := s.load(ctx, sess, kind, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, records.CollectionFor(kind), id); err != nil {
		return err
	}

	middleware.GetLoggerFromContext(ctx).Warn("Request deleted",
		"kind", kind, "id", id, "status", req.Status, "type", req.Type,
		"reason", reason, "actor", sess.UserID)
	return nil
}

func (s *Service) load(ctx context.Context, sess rbac.Session, kind approval.Kind, id string) (records.Request, error) {
	doc, err := s.store.Get(ctx, records.CollectionFor(kind), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return records.Request{}, apperr.NotFound(string(kind))
		}
		return records.Request{}, err
	}
	req, err := records.DecodeRequest(kind, doc)
	if err != nil {
		return records.Request{}, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	if !scope.IsInScope(req, sess) {
		return records.Request{}, apperr.Denied("this %s belongs to another RT", kind)
	}
	return req, nil
}

// expectStatus aborts the write when someone else moved the request first.
func expectStatus(kind approval.Kind, want approval.Status) store.Guard {
	return func(cur store.Document) error {
		req, err := records.DecodeRequest(kind, cur)
		if err != nil {
			return err
		}
		if req.Status != want {
			return apperr.Conflict("the %s changed from %s to %s in the meantime; reload and try again", kind, want, req.Status)
		}
		return nil
	}
}
