package armbackend

import "armld/pkg/linker"

// TargetID names one of the two registrable backend entry points; `arm`
// and `thumb` both resolve to the same factory (§6, §9 "Global mutable
// state") since instruction-set selection is a per-symbol/per-relocation
// concern this backend already handles internally, not a separate backend
// per ISA.
type TargetID string

const (
	TargetARM   TargetID = "arm"
	TargetThumb TargetID = "thumb"
)

// BackendFactory constructs a Backend for one link. Registered once per
// TargetID in TargetRegistry; the spec frames the registry itself as
// process-wide global state (§9), which this repository instead models as
// an explicit value threaded through the driver (cmd/armld) rather than a
// package-level var, per the spec's own recommendation ("design as an
// explicit registry value threaded through the driver").
type BackendFactory func(ctx *linker.Context) *Backend

// TargetRegistry holds the factories registered for each target ID.
type TargetRegistry struct {
	factories map[TargetID]BackendFactory
}

// NewTargetRegistry builds the registry with both arm and thumb target IDs
// registered against the same GNU/ELF ARM backend factory.
func NewTargetRegistry() *TargetRegistry {
	r := &TargetRegistry{factories: make(map[TargetID]BackendFactory)}
	factory := func(ctx *linker.Context) *Backend { return NewBackend(ctx) }
	r.factories[TargetARM] = factory
	r.factories[TargetThumb] = factory
	return r
}

// Construct looks up id's factory and builds a backend for ctx. Platform
// dispatch (Darwin/Windows abort) happens inside NewBackend itself, so any
// caller reaching a factory here gets the same guard regardless of entry
// point.
func (r *TargetRegistry) Construct(id TargetID, ctx *linker.Context) *Backend {
	factory, ok := r.factories[id]
	if !ok {
		panic("armbackend: no backend factory registered for target " + string(id))
	}
	return factory(ctx)
}
