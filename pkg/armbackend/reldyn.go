package armbackend

import (
	"debug/elf"

	"armld/pkg/linker"
	"armld/pkg/utils"
)

// dynRel is one outgoing dynamic relocation: an ELF32 Rel-shaped record
// plus an addend kept alongside it. ARM RELs store the addend in-place, so
// CopyBuf writes only the offset and info words; the addend field is
// recorded but not emitted.
type dynRel struct {
	offset uint32
	typ    RelType
	symIdx uint32 // dynsym index, 0 for a symbol-less RELATIVE/COPY entry
	addend int32
}

// RelDyn is the .rel.dyn table (§4.4): every dynamic relocation except the
// PLT's own R_ARM_JUMP_SLOT entries, which live in RelPlt instead so
// invariant 2's |PLT1|=|rel.plt| count holds section-by-section.
type RelDyn struct {
	linker.Chunk
	Rels []dynRel
}

func NewRelDyn() *RelDyn {
	r := &RelDyn{Chunk: linker.NewChunk()}
	r.Name = ".rel.dyn"
	r.Shdr.Type = uint32(elf.SHT_REL)
	r.Shdr.Flags = uint32(elf.SHF_ALLOC)
	r.Shdr.Entsize = 8
	r.Shdr.Addralign = 4
	return r
}

func (r *RelDyn) Add(offset uint32, typ RelType, symIdx uint32, addend int32) {
	r.Rels = append(r.Rels, dynRel{offset: offset, typ: typ, symIdx: symIdx, addend: addend})
}

func (r *RelDyn) FinalizeSectionSize() {
	r.Shdr.Size = uint32(len(r.Rels)) * 8
}

func (r *RelDyn) CopyBuf(ctx *linker.Context) {
	buf := ctx.Buf[r.Shdr.Offset:]
	for i, rel := range r.Rels {
		info := rel.symIdx<<8 | uint32(rel.typ&0xff)
		utils.Write(buf[i*8:], rel.offset)
		utils.Write(buf[i*8+4:], info)
	}
}

// RelPlt is .rel.plt: exactly one R_ARM_JUMP_SLOT entry per PLT stub, in
// PLT reservation order so PLTn and rel.plt[n-1] always describe the same
// symbol (§4.4 invariant 2).
type RelPlt struct {
	linker.Chunk
	plt *PLT
}

func NewRelPlt(plt *PLT) *RelPlt {
	r := &RelPlt{Chunk: linker.NewChunk(), plt: plt}
	r.Name = ".rel.plt"
	r.Shdr.Type = uint32(elf.SHT_REL)
	r.Shdr.Flags = uint32(elf.SHF_ALLOC)
	r.Shdr.Entsize = 8
	r.Shdr.Addralign = 4
	return r
}

func (r *RelPlt) FinalizeSectionSize() {
	r.Shdr.Size = uint32(len(r.plt.Entries)) * 8
}

func (r *RelPlt) CopyBuf(ctx *linker.Context) {
	buf := ctx.Buf[r.Shdr.Offset:]
	got := r.plt.got
	for i, sym := range r.plt.Entries {
		gotSlotAddr := got.Shdr.Addr + uint32(sym.GotIdx)*gotEntrySize
		info := dynSymIdxOf(ctx, sym)<<8 | uint32(R_ARM_JUMP_SLOT&0xff)
		utils.Write(buf[i*8:], gotSlotAddr)
		utils.Write(buf[i*8+4:], info)
	}
}

// dynSymIdxOf registers sym in the output .dynsym table if it isn't there
// yet and returns its index. The dynamic symbol table itself is owned by
// DynSymtab (symbols.go); this is a thin accessor so RelDyn/RelPlt/the
// scanner don't need to duplicate that bookkeeping at every call site that
// emits a dynamic relocation.
func dynSymIdxOf(ctx *linker.Context, sym *linker.Symbol) uint32 {
	if b, ok := ctx.Backend.(*Backend); ok && b.dynsym != nil {
		return b.dynsym.Add(sym)
	}
	return 0
}
