package approval

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// permit types as residents pick them in the app
var defaultFlows = map[string]Flow{
	"Izin Tamu":                 FlowRTOnly,
	"Surat Pengantar":           FlowRTOnly,
	"Surat Keterangan Domisili": FlowRTOnly,
	"Izin Renovasi":             FlowTiered,
	"Izin Keramaian":            FlowTiered,
	"Izin Usaha":                FlowTiered,
	"Izin Pindah":               FlowTiered,
	"Penggunaan Fasum":          FlowRWOnly,
	"Penggunaan Balai Warga":    FlowRWOnly,
	"Izin Pemasangan Spanduk":   FlowRWOnly,
}

type permitType struct {
	name string
	flow Flow
}

// Resolver classifies permits into flows and answers legality questions.
type Resolver struct {
	types map[string]permitType // keyed by typeKey
}

// NewResolver builds a resolver from the built-in table plus overrides, keyed
// by permit type. Overrides win over built-in entries; a known type keeps its
// built-in spelling.
func NewResolver(overrides map[string]Flow) *Resolver {
	types := make(map[string]permitType, len(defaultFlows)+len(overrides))
	for name, flow := range defaultFlows {
		types[typeKey(name)] = permitType{name: name, flow: flow}
	}
	for name, flow := range overrides {
		key := typeKey(name)
		if key == "" {
			continue
		}
		pt, ok := types[key]
		if !ok {
			pt.name = strings.Join(strings.Fields(name), " ")
		}
		pt.flow = flow
		types[key] = pt
	}
	return &Resolver{types: types}
}

// ClassifyFlow maps a permit type to its flow. Unknown types get RT_ONLY.
func (r *Resolver) ClassifyFlow(permitType string) Flow {
	if pt, ok := r.types[typeKey(permitType)]; ok {
		return pt.flow
	}
	return FlowRTOnly
}

// FlowFor returns the flow of a record; reports have none.
func (r *Resolver) FlowFor(kind Kind, requestType string) Flow {
	if kind != KindPermit {
		return ""
	}
	return r.ClassifyFlow(requestType)
}

// PermitTypes lists the known permit types by display name with their flows.
func (r *Resolver) PermitTypes() map[string]Flow {
	out := make(map[string]Flow, len(r.types))
	for _, pt := range r.types {
		out[pt.name] = pt.flow
	}
	return out
}

func typeKey(permitType string) string {
	return strings.ToLower(strings.Join(strings.Fields(permitType), " "))
}

type flowFile struct {
	Flows map[string]string `yaml:"flows"`
}

// LoadFlowOverrides reads a YAML file of the form
//
//	flows:
//	  Izin Parkir Truk: TIERED
//
// An empty path yields no overrides.
func LoadFlowOverrides(path string) (map[string]Flow, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow overrides: %w", err)
	}
	return ParseFlowOverrides(data)
}

func ParseFlowOverrides(data []byte) (map[string]Flow, error) {
	var file flowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse flow overrides: %w", err)
	}

	overrides := make(map[string]Flow, len(file.Flows))
	for permitType, raw := range file.Flows {
		flow, ok := ParseFlow(raw)
		if !ok {
			return nil, fmt.Errorf("permit type %q: unknown flow %q", permitType, raw)
		}
		overrides[permitType] = flow
	}
	return overrides, nil
}
