package approval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFlow(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		permitType string
		want       Flow
	}{
		{"Izin Tamu", FlowRTOnly},
		{"Izin Renovasi", FlowTiered},
		{"izin  renovasi ", FlowTiered},
		{"IZIN KERAMAIAN", FlowTiered},
		{"Penggunaan Fasum", FlowRWOnly},
		{"Penggunaan Balai Warga", FlowRWOnly},
		{"Izin Memelihara Naga", FlowRTOnly},
		{"", FlowRTOnly},
	}
	for _, tt := range tests {
		t.Run(tt.permitType, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ClassifyFlow(tt.permitType))
		})
	}
}

func TestFlowFor_ReportsHaveNoFlow(t *testing.T) {
	r := NewResolver(nil)
	assert.Equal(t, Flow(""), r.FlowFor(KindReport, "Izin Renovasi"))
	assert.Equal(t, FlowTiered, r.FlowFor(KindPermit, "Izin Renovasi"))
}

func TestNewResolver_Overrides(t *testing.T) {
	r := NewResolver(map[string]Flow{
		"Izin Tamu":        FlowTiered,
		"Izin Parkir Truk": FlowRWOnly,
	})

	assert.Equal(t, FlowTiered, r.ClassifyFlow("izin tamu"))
	assert.Equal(t, FlowRWOnly, r.ClassifyFlow("Izin Parkir Truk"))
	assert.Equal(t, FlowTiered, r.ClassifyFlow("Izin Renovasi"))

	// the built-in table is not mutated
	assert.Equal(t, FlowRTOnly, NewResolver(nil).ClassifyFlow("Izin Tamu"))
}

func TestResolver_PermitTypesKeepDisplayNames(t *testing.T) {
	r := NewResolver(map[string]Flow{
		" izin  TAMU ":      FlowTiered,
		"Izin  Parkir Truk": FlowRWOnly,
	})

	types := r.PermitTypes()
	assert.Equal(t, FlowTiered, types["Izin Tamu"], "an override keeps the built-in spelling")
	assert.Equal(t, FlowRWOnly, types["Izin Parkir Truk"])
	assert.Equal(t, FlowTiered, types["Izin Renovasi"])
	assert.Len(t, types, len(defaultFlows)+1)
	for name := range types {
		assert.NotEqual(t, typeKey(name), name, "%q is a lookup key, not a display name", name)
	}
}

func TestParseFlowOverrides(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		data := []byte("flows:\n  Izin Parkir Truk: tiered\n  Izin Tamu: RW_ONLY\n")
		overrides, err := ParseFlowOverrides(data)
		require.NoError(t, err)
		assert.Equal(t, map[string]Flow{
			"Izin Parkir Truk": FlowTiered,
			"Izin Tamu":        FlowRWOnly,
		}, overrides)
	})

	t.Run("unknown flow", func(t *testing.T) {
		_, err := ParseFlowOverrides([]byte("flows:\n  Izin Tamu: SOMETIMES\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown flow")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseFlowOverrides([]byte("flows: [a, b"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse flow overrides")
	})
}

func TestLoadFlowOverrides(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		overrides, err := LoadFlowOverrides("")
		require.NoError(t, err)
		assert.Nil(t, overrides)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flows.yaml")
		require.NoError(t, os.WriteFile(path, []byte("flows:\n  Izin Kandang: RW_ONLY\n"), 0o600))

		overrides, err := LoadFlowOverrides(path)
		require.NoError(t, err)
		assert.Equal(t, FlowRWOnly, overrides["Izin Kandang"])
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFlowOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
