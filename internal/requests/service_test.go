package requests_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/records"
	"github.com/siwarga/rwrt-backend/internal/requests"
	"github.com/siwarga/rwrt-backend/internal/store"
	"github.com/siwarga/rwrt-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rt01 = rbac.Session{UserID: uuid.New(), Name: "Pak RT 01", Role: rbac.RoleRT, AreaCode: "01"}
	rt02 = rbac.Session{UserID: uuid.New(), Name: "Pak RT 02", Role: rbac.RoleRT, AreaCode: "02"}
	rw   = rbac.Session{UserID: uuid.New(), Name: "Bu RW", Role: rbac.RoleRW}
)

type spyNotifier struct {
	mu    sync.Mutex
	calls []approval.Status
}

func (n *spyNotifier) Transitioned(ctx context.Context, req records.Request, from approval.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, req.Status)
}

func newService(t *testing.T) (*requests.Service, *testutil.MemStore, *spyNotifier) {
	t.Helper()
	st := testutil.NewMemStore()
	n := &spyNotifier{}
	return requests.NewService(st, approval.NewResolver(nil), n), st, n
}

func statusOf(t *testing.T, st store.Store, c store.Collection, id string) string {
	t.Helper()
	doc, err := st.Get(context.Background(), c, id)
	require.NoError(t, err)
	return doc.Data["status"].(string)
}

func TestTransition_RTOnlyApproval(t *testing.T) {
	svc, st, n := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()

	item, err := svc.Transition(ctx, rt01, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	require.NoError(t, err)

	assert.Equal(t, approval.StatusApproved, item.Status)
	require.NotNil(t, item.ApprovedByRT)
	assert.Equal(t, rt01.UserID.String(), item.ApprovedByRT.UserID)
	assert.Nil(t, item.ApprovedByRW)
	assert.True(t, item.View.Terminal)
	assert.Equal(t, []approval.Status{approval.StatusApproved}, n.calls)
}

func TestTransition_TieredHappyPath(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Izin Renovasi", "01").Create()

	item, err := svc.Transition(ctx, rt01, approval.KindPermit, doc.ID, requests.Command{Action: "forward"})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusWaitingRWApproval, item.Status)
	assert.Equal(t, approval.FlowTiered, item.Flow)
	require.NotNil(t, item.ApprovedByRT)
	firstTier := *item.ApprovedByRT
	assert.False(t, item.View.Actionable)
	assert.Equal(t, []rbac.Role{rbac.RoleRW}, item.View.Awaiting)

	item, err = svc.Transition(ctx, rw, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, item.Status)
	require.NotNil(t, item.ApprovedByRW)
	assert.Equal(t, "Bu RW", item.ApprovedByRW.Name)
	assert.Equal(t, firstTier, *item.ApprovedByRT)
}

func TestTransition_TieredRejectionAtFirstTier(t *testing.T) {
	svc, st, _ := newService(t)
	doc := testutil.NewPermit(t, st, "Izin Renovasi", "01").Create()

	item, err := svc.Transition(context.Background(), rt01, approval.KindPermit, doc.ID,
		requests.Command{Action: "reject", Reason: "Dokumen tidak lengkap"})
	require.NoError(t, err)

	assert.Equal(t, approval.StatusRejected, item.Status)
	assert.Equal(t, "Dokumen tidak lengkap", item.RejectionReason)
	assert.Nil(t, item.ApprovedByRT)
	assert.Nil(t, item.ApprovedByRW)
	assert.NotNil(t, item.RejectedBy)
}

func TestTransition_RWOnlyGuard(t *testing.T) {
	svc, st, n := newService(t)
	doc := testutil.NewPermit(t, st, "Penggunaan Fasum", "01").Create()

	_, err := svc.Transition(context.Background(), rt01, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	assert.ErrorIs(t, err, apperr.ErrIllegalTransition)
	assert.Equal(t, "PENDING", statusOf(t, st, store.Permits, doc.ID))
	assert.Empty(t, n.calls)
}

func TestTransition_ReportLifecycle(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	doc := testutil.NewReport(t, st, "Penerangan", "01").Create()

	item, err := svc.Transition(ctx, rt01, approval.KindReport, doc.ID, requests.Command{Action: "start"})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusInProgress, item.Status)
	assert.NotNil(t, item.ProcessedBy)

	_, err = svc.Transition(ctx, rt01, approval.KindReport, doc.ID, requests.Command{Action: "resolve", Note: ""})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Equal(t, "IN_PROGRESS", statusOf(t, st, store.Reports, doc.ID))

	other := testutil.NewReport(t, st, "Penerangan", "01").Create()
	_, err = svc.Transition(ctx, rt01, approval.KindReport, doc.ID,
		requests.Command{Action: "resolve", Note: "Fixed the light", Photos: []string{"reports/" + other.ID + "/1.jpg"}})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	assert.Equal(t, "IN_PROGRESS", statusOf(t, st, store.Reports, doc.ID))

	item, err = svc.Transition(ctx, rt01, approval.KindReport, doc.ID,
		requests.Command{Action: "resolve", Note: "Fixed the light", Photos: []string{"reports/" + doc.ID + "/1.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusDone, item.Status)
	assert.Equal(t, "Fixed the light", item.ResolutionNote)
	assert.Equal(t, []string{"reports/" + doc.ID + "/1.jpg"}, item.ResolutionPhotos)
	require.NotNil(t, item.ResolvedBy)
	assert.Equal(t, rbac.RoleRT, item.ResolvedBy.Role)
}

func TestTransition_TerminalRecordsStayPut(t *testing.T) {
	svc, st, n := newService(t)
	ctx := context.Background()

	closed := []struct {
		kind approval.Kind
		doc  store.Document
	}{
		{approval.KindPermit, testutil.NewPermit(t, st, "Izin Tamu", "01").With("status", "REJECTED").Create()},
		{approval.KindPermit, testutil.NewPermit(t, st, "Izin Renovasi", "01").With("status", "APPROVED").Create()},
		{approval.KindReport, testutil.NewReport(t, st, "Penerangan", "01").With("status", "DONE").Create()},
	}

	for _, c := range closed {
		want := statusOf(t, st, records.CollectionFor(c.kind), c.doc.ID)
		for _, sess := range []rbac.Session{rt01, rw} {
			for _, action := range []string{"approve", "forward", "reject", "start", "resolve", "escalate", ""} {
				_, err := svc.Transition(ctx, sess, c.kind, c.doc.ID,
					requests.Command{Action: action, Reason: "x", Note: "x"})
				assert.ErrorIs(t, err, apperr.ErrIllegalTransition, "%s %s role=%s action=%q", c.kind, want, sess.Role, action)
			}
		}
		assert.Equal(t, want, statusOf(t, st, records.CollectionFor(c.kind), c.doc.ID))
	}
	assert.Empty(t, n.calls)
}

func TestTransition_ClosedRecordOutsideScope(t *testing.T) {
	svc, st, _ := newService(t)
	doc := testutil.NewReport(t, st, "Sampah", "01").With("status", "DONE").Create()

	_, err := svc.Transition(context.Background(), rt02, approval.KindReport, doc.ID, requests.Command{Action: "start"})
	assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)
}

func TestTransition_Authorization(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	t.Run("RW cannot process reports", func(t *testing.T) {
		doc := testutil.NewReport(t, st, "Sampah", "01").Create()
		_, err := svc.Transition(ctx, rw, approval.KindReport, doc.ID, requests.Command{Action: "start"})
		assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)
	})

	t.Run("RT outside its area", func(t *testing.T) {
		doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()
		_, err := svc.Transition(ctx, rt02, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
		assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)
		assert.Equal(t, "PENDING", statusOf(t, st, store.Permits, doc.ID))
	})

	t.Run("no role", func(t *testing.T) {
		doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()
		_, err := svc.Transition(ctx, rbac.Session{}, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
		assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)
	})

	t.Run("unknown action", func(t *testing.T) {
		doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()
		_, err := svc.Transition(ctx, rt01, approval.KindPermit, doc.ID, requests.Command{Action: "escalate"})
		assert.ErrorIs(t, err, apperr.ErrValidationFailed)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := svc.Transition(ctx, rt01, approval.KindPermit, uuid.NewString(), requests.Command{Action: "approve"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestTransition_StoreFailureLeavesRecordUnchanged(t *testing.T) {
	svc, st, n := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()

	// fail the write, not the read
	updateCalls := 0
	failing := &failOnUpdate{MemStore: st, fail: errors.New("connection reset"), calls: &updateCalls}
	svc = requests.NewService(failing, approval.NewResolver(nil), n)

	_, err := svc.Transition(ctx, rt01, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.True(t, apperr.Retryable(err))
	assert.Equal(t, 1, updateCalls)

	got, err := st.Get(ctx, store.Permits, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", got.Data["status"])
	assert.NotContains(t, got.Data, "approvedByRT")
	assert.Empty(t, n.calls)

	// re-issuing the same command succeeds once the store recovers
	svc = requests.NewService(st, approval.NewResolver(nil), n)
	item, err := svc.Transition(ctx, rt01, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	require.NoError(t, err)
	assert.Equal(t, approval.StatusApproved, item.Status)
}

type failOnUpdate struct {
	*testutil.MemStore
	fail  error
	calls *int
}

func (f *failOnUpdate) Update(ctx context.Context, c store.Collection, id string, fields map[string]any, guard store.Guard) (store.Document, error) {
	*f.calls++
	return store.Document{}, apperr.Unavailable("update", f.fail)
}

func TestTransition_ConcurrentDecisionsConflict(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Izin Renovasi", "01").With("status", "WAITING_RW_APPROVAL").Create()

	// another admin rejects between our read and our write
	racing := &raceOnUpdate{MemStore: st, before: func() {
		_, err := st.Update(ctx, store.Permits, doc.ID, map[string]any{"status": "REJECTED"}, nil)
		require.NoError(t, err)
	}}
	svc = requests.NewService(racing, approval.NewResolver(nil), nil)

	_, err := svc.Transition(ctx, rw, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "REJECTED", statusOf(t, st, store.Permits, doc.ID))
}

type raceOnUpdate struct {
	*testutil.MemStore
	before func()
}

func (r *raceOnUpdate) Update(ctx context.Context, c store.Collection, id string, fields map[string]any, guard store.Guard) (store.Document, error) {
	r.before()
	return r.MemStore.Update(ctx, c, id, fields, guard)
}

func TestList_ScopeAndFilter(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()

	testutil.NewPermit(t, st, "Izin Tamu", "01").Create()
	testutil.NewPermit(t, st, "Izin Renovasi", "01").With("status", "APPROVED").Create()
	testutil.NewPermit(t, st, "Izin Tamu", "02").Create()
	testutil.NewPermit(t, st, "Izin Tamu", "01").Without("status").Create() // malformed

	all, err := svc.List(ctx, rw, approval.KindPermit, requests.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	own, err := svc.List(ctx, rt01, approval.KindPermit, requests.Filter{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	pending, err := svc.List(ctx, rt01, approval.KindPermit, requests.Filter{Status: approval.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].View.Actionable)

	_, err = svc.List(ctx, rbac.Session{}, approval.KindPermit, requests.Filter{})
	assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)
}

func TestGet(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Penggunaan Fasum", "01").Create()

	item, err := svc.Get(ctx, rt01, approval.KindPermit, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, approval.FlowRWOnly, item.Flow)
	assert.False(t, item.View.Actionable, "RT sees RW_ONLY permits read-only")

	_, err = svc.Get(ctx, rt02, approval.KindPermit, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)

	st.FailNext(errors.New("timeout"))
	_, err = svc.Get(ctx, rw, approval.KindPermit, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
}

func TestDelete(t *testing.T) {
	svc, st, _ := newService(t)
	ctx := context.Background()
	doc := testutil.NewPermit(t, st, "Izin Tamu", "01").With("status", "APPROVED").Create()

	err := svc.Delete(ctx, rt01, approval.KindPermit, doc.ID, "duplikat")
	assert.ErrorIs(t, err, apperr.ErrAuthorizationDenied)

	err = svc.Delete(ctx, rw, approval.KindPermit, doc.ID, "  ")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	require.NoError(t, svc.Delete(ctx, rw, approval.KindPermit, doc.ID, "duplikat"))
	_, err = st.Get(ctx, store.Permits, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.Delete(ctx, rw, approval.KindPermit, doc.ID, "duplikat")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFlowOverridesApply(t *testing.T) {
	st := testutil.NewMemStore()
	svc := requests.NewService(st, approval.NewResolver(map[string]approval.Flow{"Izin Tamu": approval.FlowRWOnly}), nil)
	doc := testutil.NewPermit(t, st, "Izin Tamu", "01").Create()

	_, err := svc.Transition(context.Background(), rt01, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	assert.ErrorIs(t, err, apperr.ErrIllegalTransition)

	item, err := svc.Transition(context.Background(), rw, approval.KindPermit, doc.ID, requests.Command{Action: "approve"})
	require.NoError(t, err)
	assert.NotNil(t, item.ApprovedByRW)
}
