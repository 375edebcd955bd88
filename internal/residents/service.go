// Package residents manages the resident directory. RW reads everything, RT
// admins read and write residents of their own area.
package residents

import (
	"context"
	"errors"
	"fmt"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
	"github.com/siwarga/rwrt-backend/internal/scope"
	"github.com/siwarga/rwrt-backend/internal/store"
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) List(ctx context.Context, sess rbac.Session) ([]records.Resident, error) {
	if !sess.Can(rbac.ResidentsViewAll) && !sess.Can(rbac.ResidentsViewOwn) {
		return nil, apperr.Denied("your role cannot view residents")
	}

	docs, err := s.store.List(ctx, store.Residents)
	if err != nil {
		return nil, err
	}

	logger := middleware.GetLoggerFromContext(ctx)
	out := make([]records.Resident, 0, len(docs))
	for _, doc := range docs {
		r, err := records.DecodeResident(doc)
		if err != nil {
			logger.Warn("Skipping malformed resident", "id", doc.ID, "error", err)
			continue
		}
		out = append(out, r)
	}
	return scope.FilterByScope(out, sess), nil
}

func (s *Service) Get(ctx context.Context, sess rbac.Session, id string) (records.Resident, error) {
	if !sess.Can(rbac.ResidentsViewAll) && !sess.Can(rbac.ResidentsViewOwn) {
		return records.Resident{}, apperr.Denied("your role cannot view residents")
	}
	return s.load(ctx, sess, id)
}

func (s *Service) Create(ctx context.Context, sess rbac.Session, in records.ResidentInput) (records.Resident, error) {
	if !sess.Can(rbac.ResidentsCreate) {
		return records.Resident{}, apperr.Denied("your role cannot add residents")
	}
	fields, err := in.Fields(true)
	if err != nil {
		return records.Resident{}, err
	}
	if unit := fields["unit"].(string); !scope.MatchesArea(unit, sess.AreaCode) {
		return records.Resident{}, apperr.Invalid("unit", "unit %q is not in RT %s", unit, sess.AreaCode)
	}

	doc, err := s.store.Add(ctx, store.Residents, fields)
	if err != nil {
		return records.Resident{}, err
	}
	middleware.GetLoggerFromContext(ctx).Info("Resident added", "id", doc.ID, "actor", sess.UserID)
	return records.DecodeResident(doc)
}

func (s *Service) Update(ctx context.Context, sess rbac.Session, id string, in records.ResidentInput) (records.Resident, error) {
	if !sess.Can(rbac.ResidentsEdit) {
		return records.Resident{}, apperr.Denied("your role cannot edit residents")
	}
	fields, err := in.Fields(false)
	if err != nil {
		return records.Resident{}, err
	}
	if unit, ok := fields["unit"].(string); ok && !scope.MatchesArea(unit, sess.AreaCode) {
		return records.Resident{}, apperr.Invalid("unit", "unit %q is not in RT %s", unit, sess.AreaCode)
	}
	if _, err := s.load(ctx, sess, id); err != nil {
		return records.Resident{}, err
	}

	// the resident must still be ours when the write lands
	guard := func(cur store.Document) error {
		r, err := records.DecodeResident(cur)
		if err != nil {
			return err
		}
		if !scope.IsInScope(r, sess) {
			return apperr.Conflict("the resident moved to another RT in the meantime")
		}
		return nil
	}
	doc, err := s.store.Update(ctx, store.Residents, id, fields, guard)
	if err != nil {
		return records.Resident{}, notFound(err)
	}
	middleware.GetLoggerFromContext(ctx).Info("Resident updated", "id", id, "actor", sess.UserID)
	return records.DecodeResident(doc)
}

func (s *Service) Delete(ctx context.Context, sess rbac.Session, id string) error {
	if !sess.Can(rbac.ResidentsDelete) {
		return apperr.Denied("your role cannot delete residents")
	}
	if _, err := s.load(ctx, sess, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.Residents, id); err != nil {
		return notFound(err)
	}
	middleware.GetLoggerFromContext(ctx).Info("Resident deleted", "id", id, "actor", sess.UserID)
	return nil
}

func (s *Service) load(ctx context.Context, sess rbac.Session, id string) (records.Resident, error) {
	doc, err := s.store.Get(ctx, store.Residents, id)
	if err != nil {
		return records.Resident{}, notFound(err)
	}
	r, err := records.DecodeResident(doc)
	if err != nil {
		return records.Resident{}, fmt.Errorf("decode resident %s: %w", id, err)
	}
	if !scope.IsInScope(r, sess) {
		return records.Resident{}, apperr.Denied("this resident belongs to another RT")
	}
	return r, nil
}

func notFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.NotFound("resident")
	}
	return err
}
