package armbackend

import (
	"debug/elf"

	"armld/pkg/linker"
	"armld/pkg/utils"
)

// GOT is the Global Offset Table manager (§4.4). GOT0 (the first three
// 4-byte slots) is reserved: slot 0 carries the runtime .dynamic address
// (shared objects only), slots 1-2 are reserved for the dynamic linker.
// Grounded on dongAxis-rvld's gotsection.go, narrowed from 8-byte RISC-V
// slots to the ARM ABI's 4-byte words and widened with the GOT0 header.
type GOT struct {
	linker.Chunk

	// Entries holds every symbol that reserved a GOT slot, in reservation
	// order (index i occupies GOT byte offset (3+i)*4). PLT.ReserveEntry
	// threads its paired slot through Reserve too, so a PLT-bound symbol
	// appears here as well as in the PLT's own Entries.
	Entries []*linker.Symbol

	// got0 is GOT byte offset 0: the runtime .dynamic address for shared
	// objects, zero otherwise. Filled in by ApplyGOT0 during DoPostLayout.
	got0 uint32
}

const gotEntrySize = 4
const got0Words = 3

func NewGOT() *GOT {
	g := &GOT{Chunk: linker.NewChunk()}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint32(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.Addralign = gotEntrySize
	return g
}

// Reserve gives sym a GOT slot if it doesn't already have one, setting
// exactly one of ReserveGOT/GOTRel per the caller's choice. dynamic is
// true when the slot's value is not link-time-known and therefore needs a
// GOTRel dynamic relocation rather than a plain in-place value.
func (g *GOT) Reserve(sym *linker.Symbol, dynamic bool) {
	if Reserved(sym.Reserved).Has(ReserveGOT) || Reserved(sym.Reserved).Has(GOTRel) {
		return
	}
	sym.GotIdx = int32(got0Words + len(g.Entries))
	g.Entries = append(g.Entries, sym)
	if dynamic {
		sym.Reserved |= uint32(GOTRel)
	} else {
		sym.Reserved |= uint32(ReserveGOT)
	}
}

// ReserveForPLT is PLT.ReserveEntry's paired call: identical bookkeeping
// to Reserve, but always through the ReserveGOT path, so CopyBuf writes
// the symbol's own GetAddr() into the slot like any other link-time slot.
// PLT0's address is not written into PLT-paired slots.
func (g *GOT) ReserveForPLT(sym *linker.Symbol) int32 {
	if !Reserved(sym.Reserved).Has(ReserveGOT) && !Reserved(sym.Reserved).Has(GOTRel) {
		g.Reserve(sym, false)
	}
	return sym.GotIdx
}

func (g *GOT) HasGOT1() bool { return len(g.Entries) > 0 }

func (g *GOT) FinalizeSectionSize() {
	g.Shdr.Size = uint32(got0Words+len(g.Entries)) * gotEntrySize
}

// ApplyGOT0 stores the runtime .dynamic address into GOT byte 0 (shared
// objects) or zero (everything else, per §4.1 doPostLayout).
func (g *GOT) ApplyGOT0(dynAddr uint32) {
	g.got0 = dynAddr
}

// CopyBuf writes GOT0's reserved header plus every reserved slot's
// link-time-known value. GOTRel slots are left zero here; their value
// comes from the dynamic linker at load time (a .rel.dyn R_ARM_GLOB_DAT
// entry points the loader at the slot instead).
func (g *GOT) CopyBuf(ctx *linker.Context) {
	buf := ctx.Buf[g.Shdr.Offset:]
	utils.Write(buf[0:], g.got0)

	for i, sym := range g.Entries {
		off := (got0Words + i) * gotEntrySize
		if Reserved(sym.Reserved).Has(GOTRel) {
			continue
		}
		utils.Write(buf[off:], uint32(sym.GetAddr()))
	}
}
