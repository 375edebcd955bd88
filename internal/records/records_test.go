package records

import (
	"testing"
	"time"

	"github.com/siwarga/rwrt-backend/internal/apperr"
	"github.com/siwarga/rwrt-backend/internal/approval"
	"github.com/siwarga/rwrt-backend/internal/rbac"
	"github.com/siwarga/rwrt-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	created := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	doc := store.Document{
		ID: "p1",
		Data: map[string]any{
			"type":            "Izin Renovasi",
			"status":          "waiting rw approval",
			"userUnit":        "Blok C/12 RT.03",
			"userName":        "Andi",
			"userEmail":       "andi@example.com",
			"createdAt":       float64(created.UnixMilli()),
			"rejectionReason": "  spasi dipertahankan ",
			"approvedByRT": map[string]any{
				"userId": "u-rt",
				"name":   "Pak RT",
				"role":   "rt",
				"at":     "2026-02-15T09:00:00Z",
			},
			"photos": []any{"a.jpg", "", 42},
		},
	}

	r, err := DecodeRequest(approval.KindPermit, doc)
	require.NoError(t, err)

	assert.Equal(t, approval.StatusWaitingRWApproval, r.Status)
	assert.Equal(t, "Blok C/12 RT.03", r.Unit)
	assert.Equal(t, "Blok C/12 RT.03", r.AreaTag())
	assert.Equal(t, created, r.CreatedAt)
	assert.Equal(t, "  spasi dipertahankan ", r.RejectionReason)
	assert.Equal(t, []string{"a.jpg"}, r.Photos)
	require.NotNil(t, r.ApprovedByRT)
	assert.Equal(t, rbac.RoleRT, r.ApprovedByRT.Role)
	assert.Equal(t, time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), r.ApprovedByRT.At)
	assert.Nil(t, r.ApprovedByRW)

	st := r.State(approval.FlowTiered)
	assert.Equal(t, approval.FlowTiered, st.Flow)
	assert.Equal(t, r.ApprovedByRT, st.ApprovedByRT)
}

func TestDecodeRequest_ReportCategoryAndUnit(t *testing.T) {
	doc := store.Document{
		ID:        "r1",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Data: map[string]any{
			"category": "Keamanan",
			"status":   "OPEN",
			"unit":     "RT 01",
		},
	}

	r, err := DecodeRequest(approval.KindReport, doc)
	require.NoError(t, err)
	assert.Equal(t, "Keamanan", r.Type)
	assert.Equal(t, "RT 01", r.Unit)
	assert.Equal(t, doc.CreatedAt, r.CreatedAt, "falls back to the document timestamp")
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"no data", nil},
		{"unknown status", map[string]any{"type": "Izin Tamu", "status": "ARCHIVED"}},
		{"missing status", map[string]any{"type": "Izin Tamu"}},
		{"missing type", map[string]any{"status": "PENDING"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRequest(approval.KindPermit, store.Document{ID: "x", Data: tt.data})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCoerceTime(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, v := range map[string]any{
		"rfc3339":   "2026-03-01T17:00:00+07:00",
		"unix ms":   float64(want.UnixMilli()),
		"firestore": map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(0)},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := coerceTime(v)
			require.True(t, ok)
			assert.True(t, want.Equal(got), "got %s", got)
		})
	}

	_, ok := coerceTime("kemarin")
	assert.False(t, ok)
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, store.Reports, CollectionFor(approval.KindReport))
	assert.Equal(t, store.Permits, CollectionFor(approval.KindPermit))
}

func TestDecodeResident(t *testing.T) {
	r, err := DecodeResident(store.Document{ID: "w1", Data: map[string]any{
		"name":         "Siti",
		"address":      "Jl. Melati RT02",
		"status":       "Kontrak",
		"headOfFamily": "true",
	}})
	require.NoError(t, err)
	assert.Equal(t, "Jl. Melati RT02", r.AreaTag())
	assert.Equal(t, OccupancyTenant, r.Occupancy)
	assert.True(t, r.HeadOfFamily)

	_, err = DecodeResident(store.Document{ID: "w2", Data: map[string]any{"unit": "RT 01"}})
	assert.ErrorIs(t, err, ErrMalformed)
}

func ptr[T any](v T) *T { return &v }

func TestResidentInput_Fields(t *testing.T) {
	t.Run("create requires name and unit", func(t *testing.T) {
		_, err := ResidentInput{Name: ptr("Budi")}.Fields(true)
		assert.ErrorIs(t, err, apperr.ErrValidationFailed)

		fields, err := ResidentInput{Name: ptr(" Budi "), Unit: ptr("RT 01 No. 4")}.Fields(true)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Budi", "unit": "RT 01 No. 4"}, fields)
	})

	t.Run("partial update", func(t *testing.T) {
		fields, err := ResidentInput{Phone: ptr("0812"), HeadOfFamily: ptr(false)}.Fields(false)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"phone": "0812", "headOfFamily": false}, fields)
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, in := range []ResidentInput{
			{NIK: ptr("123")},
			{Email: ptr("nope")},
			{Occupancy: ptr("sewa")},
			{Name: ptr("  ")},
			{},
		} {
			_, err := in.Fields(false)
			assert.ErrorIs(t, err, apperr.ErrValidationFailed)
		}
	})
}
