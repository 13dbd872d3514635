package linker

// TargetBackend is the seam between the generic linker (pkg/linker) and a
// target-specific backend (pkg/armbackend). The generic linker drives the
// lifecycle hooks from cmd/armld/main.go and passes.go; it never reaches
// into backend internals directly. Defining the interface here, rather
// than in the backend package, keeps pkg/linker free of an import on
// pkg/armbackend while still letting Context hold one.
type TargetBackend interface {
	// InitTargetSections lets the backend create any synthetic input
	// sections it needs before symbol resolution begins.
	InitTargetSections(ctx *Context)

	// InitTargetSymbols registers the synthetic symbols the backend
	// defines (_GLOBAL_OFFSET_TABLE_, __exidx_start, __exidx_end, ...).
	InitTargetSymbols(ctx *Context)

	// ScanRelocation classifies one relocation against one input
	// section, reserving GOT/PLT/copy-relocation/dynamic-relocation
	// resources as needed.
	ScanRelocation(ctx *Context, isec *InputSection, rel Relocation)

	// DoPreLayout runs after relocation scanning but before the generic
	// layout pass assigns output-section addresses: it sizes the GOT,
	// PLT, and dynamic relocation tables from what ScanRelocation
	// reserved.
	DoPreLayout(ctx *Context)

	// DoRelax runs the branch-relaxation fixed point once output
	// addresses are known. It returns true once no further stub
	// insertion changed any section's size.
	DoRelax(ctx *Context) (finished bool)

	// DoPostLayout runs once relaxation has converged, to fill in
	// addresses (e.g. __exidx_start/__exidx_end and GOT[0]) that depend
	// on final layout.
	DoPostLayout(ctx *Context)

	// DoCreateProgramHdrs lets the backend contribute target-specific
	// program headers (PT_ARM_EXIDX) to append after the generic ones.
	DoCreateProgramHdrs(ctx *Context) []ProgramHeader

	// EmitSectionData is the fallback for backend-owned output sections
	// that have no CopyBuf of their own. The ARM backend's chunks all
	// write through CopyBuf, so its implementation accepts .ARM.exidx/
	// .ARM.extab as no-ops and panics on any other section; the generic
	// pipeline does not call it.
	EmitSectionData(ctx *Context, osec *OutputSection)

	// Chunks returns every chunk the backend wants registered with the
	// generic linker's chunk list (order matters: GOT before PLT, rel
	// tables after the sections they describe).
	Chunks() []Chunker
}
