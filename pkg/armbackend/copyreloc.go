package armbackend

import (
	"debug/elf"

	"armld/pkg/linker"
	"armld/pkg/utils"
)

// bssWordSize is the target word size (bitclass/8) §4.3 aligns every copy-
// relocation slot to; this backend only ever targets 32-bit ARM/Thumb.
const bssWordSize = 4

// bssRegion is a synthetic NOBITS chunk the copy-relocation allocator grows
// by one word-aligned, sym.Size-byte slot per reservation (§4.3). It never
// overrides CopyBuf: linker.OutputSection.CopyBuf already skips SHT_NOBITS
// chunks outright, and a NOBITS region contributes no file bytes of its
// own, so linker.Chunk's no-op default is the correct behavior here too.
type bssRegion struct {
	linker.Chunk
	syms []*linker.Symbol
}

func newBssRegion(name string, tls bool) *bssRegion {
	r := &bssRegion{Chunk: linker.NewChunk()}
	r.Name = name
	r.Shdr.Type = uint32(elf.SHT_NOBITS)
	r.Shdr.Flags = uint32(elf.SHF_ALLOC | elf.SHF_WRITE)
	if tls {
		r.Shdr.Flags |= uint32(elf.SHF_TLS)
	}
	r.Shdr.Addralign = bssWordSize
	return r
}

// reserve grows the region by a word-aligned slot sized to sym and
// redefines sym's address into it, promoting a weak binding to global
// (§4.3: "binding promoted from weak to global if weak").
func (r *bssRegion) reserve(sym *linker.Symbol) {
	offset := uint32(utils.AlignTo(uint64(r.Shdr.Size), bssWordSize))
	r.Shdr.Size = offset + uint32(sym.Size)
	r.syms = append(r.syms, sym)

	sym.SetInputSection(nil)
	sym.OutputSection = r
	sym.Value = uint64(offset)
	if sym.IsWeak {
		sym.Binding = linker.BindGlobal
		sym.IsWeak = false
	}
}

// CopyRelocs tracks symbols that need an R_ARM_COPY relocation (§4.3): a
// preemptible data (or thread-local) symbol defined in a shared object the
// output links against, whose value has to live in this output's own .bss
// (or .tbss) so non-PIC-friendly direct accesses to it keep working.
type CopyRelocs struct {
	bss  *bssRegion
	tbss *bssRegion
}

func NewCopyRelocs() *CopyRelocs {
	return &CopyRelocs{
		bss:  newBssRegion(".bss", false),
		tbss: newBssRegion(".tbss", true),
	}
}

// symbolNeedsCopyReloc reports whether sym is a dynamic, sized object or
// thread-local symbol whose interposition means it must be copied into
// this output's BSS rather than left as an indirect (GOT-mediated)
// reference.
func symbolNeedsCopyReloc(sym *linker.Symbol) bool {
	if !sym.Dynamic || sym.Size == 0 {
		return false
	}
	return sym.Type == linker.SymObject || sym.Type == linker.SymTLS
}

// Reserve carves out sym's BSS (or TBSS, for thread-local symbols) slot and
// marks sym ReserveRel; the scanner's emitCopyReloc adds the matching
// R_ARM_COPY entry to RelDyn right after this call.
func (c *CopyRelocs) Reserve(sym *linker.Symbol) {
	if Reserved(sym.Reserved).Has(ReserveRel) {
		return
	}
	if sym.Type == linker.SymTLS {
		c.tbss.reserve(sym)
	} else {
		c.bss.reserve(sym)
	}
	sym.Reserved |= uint32(ReserveRel)
}

func (c *CopyRelocs) HasEntries() bool {
	return len(c.bss.syms) > 0 || len(c.tbss.syms) > 0
}

// Chunks returns every non-empty BSS-like region this allocator owns, for
// Backend.Chunks to register with the generic linker.
func (c *CopyRelocs) Chunks() []linker.Chunker {
	var chunks []linker.Chunker
	if len(c.bss.syms) > 0 {
		chunks = append(chunks, c.bss)
	}
	if len(c.tbss.syms) > 0 {
		chunks = append(chunks, c.tbss)
	}
	return chunks
}
