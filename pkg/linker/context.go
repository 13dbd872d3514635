package linker

// ContextArgs mirrors the teacher's command-line-derived inputs, widened
// with the PIC/static/codegen knobs the ARM backend needs to decide GOT,
// PLT, and copy-relocation eligibility.
type ContextArgs struct {
	Output       string
	Emulation    MachineType
	LibraryPaths []string
	Shared       bool
	Static       bool
	PIC          bool
}

// Context is the link's shared state, grounded on the teacher's context.go
// and widened with the fields the dongAxis-rvld/unicornx-rvld forks already
// carry (MergedSections, OutputSections, Chunks) plus the backend seam this
// repository adds: Config and Backend. Got/PLT/rel-table chunks are NOT
// held here directly — they live inside the Backend and are exposed to the
// generic linker only through Backend.Chunks(), keeping this package free
// of any dependency on pkg/armbackend's concrete types.
type Context struct {
	Args   ContextArgs
	Config LinkerConfig
	Backend TargetBackend

	Objs          []*ObjectFile
	SymbolMap     map[string]*Symbol
	MergedSections []*MergedSection
	InternalObj   *ObjectFile

	Ehdr *OutputEhdr
	Phdr *OutputPhdr
	Shdr *OutputShdr

	OutputSections []*OutputSection

	Chunks []Chunker
	Buf    []byte

	// TpAddr is the thread-pointer base address used for TLS relocation
	// arithmetic; this repository never resolves TLS relocations (see
	// Non-goals), so it is carried only for layout-address bookkeeping of
	// the .tdata/.tbss segment edge, never read by the backend.
	TpAddr uint64
}

func NewContext() *Context {
	return &Context{
		Args: ContextArgs{
			Output:    "a.out",
			Emulation: MachineTypeNone,
		},
		SymbolMap: make(map[string]*Symbol),
	}
}
