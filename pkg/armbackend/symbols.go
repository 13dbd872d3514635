package armbackend

import (
	"debug/elf"

	"armld/pkg/linker"
	"armld/pkg/utils"
)

// InitTargetSymbols defines the synthetic symbols §3/§4.1 require to exist
// once the backend takes over: _GLOBAL_OFFSET_TABLE_ (the GOT's own base
// address) and __exidx_start/__exidx_end (the bounds of .ARM.exidx, which
// libgcc's unwinder walks at runtime). Each is only defined if something
// referenced it by name, matching the teacher's lazy GetSymbolByName seam.
func (b *Backend) InitTargetSymbols(ctx *linker.Context) {
	if sym, ok := ctx.SymbolMap["_GLOBAL_OFFSET_TABLE_"]; ok {
		sym.SetInputSection(nil)
		sym.OutputSection = b.got
		sym.Binding = linker.BindGlobal
		b.gotBaseSym = sym
	}

	if sym, ok := ctx.SymbolMap["__exidx_start"]; ok {
		sym.Binding = linker.BindGlobal
		b.exidxStartSym = sym
	}
	if sym, ok := ctx.SymbolMap["__exidx_end"]; ok {
		sym.Binding = linker.BindGlobal
		b.exidxEndSym = sym
	}
}

// resolveExidxBounds patches the exidx-bound symbols' addresses once
// .ARM.exidx has a final address and size (called from DoPostLayout,
// after SetOutputSectionOffsets has run). A non-empty section anchors both
// symbols into it and promotes them to dynamic, so the dynamic linker can
// resolve them too; an empty section instead defines both as absolute zero,
// untyped symbols (§4.1).
func (b *Backend) resolveExidxBounds() {
	if b.exidx.Shdr.Size == 0 {
		if b.exidxStartSym != nil {
			b.exidxStartSym.SetInputSection(nil)
			b.exidxStartSym.OutputSection = nil
			b.exidxStartSym.Value = 0
			b.exidxStartSym.Type = linker.SymNoType
		}
		if b.exidxEndSym != nil {
			b.exidxEndSym.SetInputSection(nil)
			b.exidxEndSym.OutputSection = nil
			b.exidxEndSym.Value = 0
			b.exidxEndSym.Type = linker.SymNoType
		}
		return
	}

	if b.exidxStartSym != nil {
		b.exidxStartSym.OutputSection = b.exidx
		b.exidxStartSym.Value = 0
		b.exidxStartSym.Dynamic = true
	}
	if b.exidxEndSym != nil {
		b.exidxEndSym.OutputSection = b.exidx
		b.exidxEndSym.Value = uint64(b.exidx.Shdr.Size)
		b.exidxEndSym.Dynamic = true
	}
}

// DynSymtab is the .dynsym table: every symbol a dynamic relocation names
// (a PLT entry's JUMP_SLOT, a GLOB_DAT GOT slot, a COPY relocation, or
// another global dynamic relocation). Index 0 is always the null symbol per
// the ELF ABI.
type DynSymtab struct {
	linker.Chunk
	Syms  []*linker.Symbol
	index map[*linker.Symbol]uint32
}

func NewDynSymtab() *DynSymtab {
	d := &DynSymtab{Chunk: linker.NewChunk(), index: make(map[*linker.Symbol]uint32)}
	d.Name = ".dynsym"
	d.Shdr.Type = uint32(elf.SHT_DYNSYM)
	d.Shdr.Flags = uint32(elf.SHF_ALLOC)
	d.Shdr.Entsize = 16
	d.Shdr.Addralign = 4
	return d
}

func (d *DynSymtab) Add(sym *linker.Symbol) uint32 {
	if idx, ok := d.index[sym]; ok {
		return idx
	}
	idx := uint32(len(d.Syms) + 1)
	d.Syms = append(d.Syms, sym)
	d.index[sym] = idx
	return idx
}

func (d *DynSymtab) IndexOf(sym *linker.Symbol) uint32 {
	if idx, ok := d.index[sym]; ok {
		return idx
	}
	return 0
}

func (d *DynSymtab) FinalizeSectionSize() {
	d.Shdr.Size = uint32(len(d.Syms)+1) * 16
}

func (d *DynSymtab) CopyBuf(ctx *linker.Context) {
	buf := ctx.Buf[d.Shdr.Offset:]
	for i, sym := range d.Syms {
		off := (i + 1) * 16
		utils.Write(buf[off:], uint32(0)) // st_name into .dynstr: unresolved without a name table, kept 0
		utils.Write(buf[off+4:], uint32(sym.GetAddr()))
		utils.Write(buf[off+8:], uint32(sym.Size))
		buf[off+12] = symInfoByte(sym)
		buf[off+13] = 0
		if sym.OutputSection != nil {
			utils.Write(buf[off+14:], uint16(1))
		}
	}
}

func symInfoByte(sym *linker.Symbol) byte {
	bind := byte(1) // STB_GLOBAL
	if sym.IsWeak {
		bind = 2 // STB_WEAK
	}
	typ := byte(0)
	switch sym.Type {
	case linker.SymFunc:
		typ = 2
	case linker.SymObject:
		typ = 1
	case linker.SymTLS:
		typ = 6
	}
	return bind<<4 | typ
}
