package armbackend

import (
	"debug/elf"

	"armld/pkg/linker"
)

// PLT is the Procedure Linkage Table manager (§4.4). PLT0 is the shared
// resolver stub every PLTn falls through to on first call; PLT1..PLTn are
// one-per-symbol trampolines that load their paired GOT slot and branch to
// it, exactly the ARM ABI's "GOT-indirect" PLT shape.
type PLT struct {
	linker.Chunk

	// Entries holds every symbol with a PLT stub, in reservation order.
	// PLTn (n = index+1) lives at byte offset plt0Size + index*pltEntrySize.
	Entries []*linker.Symbol

	got *GOT
}

const plt0Size = 20
const pltEntrySize = 12

func NewPLT(got *GOT) *PLT {
	p := &PLT{Chunk: linker.NewChunk(), got: got}
	p.Name = ".plt"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.Addralign = 4
	return p
}

// ReserveEntry gives sym a PLT stub plus its paired GOT slot, threading the
// GOT reservation through g.got so invariant 1 (|GOT|-3 counts every
// ReserveGOT/GOTRel symbol) and invariant 2 (|PLT1|=|rel.plt|=paired GOT
// count) both hold from the same underlying bookkeeping.
func (p *PLT) ReserveEntry(sym *linker.Symbol) {
	if Reserved(sym.Reserved).Has(ReservePLT) {
		return
	}
	p.got.ReserveForPLT(sym)
	sym.PltIdx = int32(len(p.Entries))
	p.Entries = append(p.Entries, sym)
	sym.Reserved |= uint32(ReservePLT)
}

func (p *PLT) HasEntries() bool { return len(p.Entries) > 0 }

func (p *PLT) FinalizeSectionSize() {
	if len(p.Entries) == 0 {
		p.Shdr.Size = 0
		return
	}
	p.Shdr.Size = uint32(plt0Size + len(p.Entries)*pltEntrySize)
}

// EntryAddr returns the load address of symbol sym's PLTn stub, the value
// any branch relocation targeting sym through the PLT resolves to.
func (p *PLT) EntryAddr(sym *linker.Symbol) uint64 {
	return uint64(p.Shdr.Addr) + plt0Size + uint64(sym.PltIdx)*pltEntrySize
}

// plt0Code and pltnCode are the canonical GOT-indirect ARM PLT stubs (AAELF32
// §4.5.4). PLT0 pushes LR, loads GOT[2] (the resolver) via GOT[1] (the
// linker map) and jumps to it; PLTn loads its paired GOT slot and branches.
// PLT0's trailing .word and each PLTn's three immediates are patched at
// CopyBuf time with the PC-relative displacement to the GOT (PLT0) or to
// the PLTn's own GOT slot.
var plt0Code = [plt0Size]byte{
	0x04, 0xe0, 0x2d, 0xe5, // str lr, [sp, #-4]!
	0x04, 0xe0, 0x9f, 0xe5, // ldr lr, [pc, #4]
	0x0e, 0xe0, 0x8f, 0xe0, // add lr, pc, lr
	0x08, 0xf0, 0xbe, 0xe5, // ldr pc, [lr, #8]!
	0x00, 0x00, 0x00, 0x00, // .word GOT - (PLT0 + 16)
}

func pltnCode() [pltEntrySize]byte {
	return [pltEntrySize]byte{
		0x00, 0xc6, 0x8f, 0xe2, // add ip, pc, #offset high, ror #12
		0x00, 0xca, 0x8c, 0xe2, // add ip, ip, #offset mid, ror #20
		0x00, 0xf0, 0xbc, 0xe5, // ldr pc, [ip, #offset low]!
	}
}

func (p *PLT) CopyBuf(ctx *linker.Context) {
	if len(p.Entries) == 0 {
		return
	}
	buf := ctx.Buf[p.Shdr.Offset:]
	copy(buf, plt0Code[:])

	gotAddr := p.got.Shdr.Addr
	plt0Addr := p.Shdr.Addr
	writeWord(buf[16:], gotAddr-(plt0Addr+16))

	for i, sym := range p.Entries {
		off := plt0Size + i*pltEntrySize
		stub := pltnCode()
		copy(buf[off:], stub[:])

		pltnAddr := plt0Addr + uint32(off)
		gotSlotAddr := gotAddr + uint32(sym.GotIdx)*gotEntrySize
		delta := gotSlotAddr - (pltnAddr + 8)
		writeARMAddImm(buf[off:off+4], (delta>>20)&0xff)
		writeARMAddImm(buf[off+4:off+8], (delta>>12)&0xff)
		writeARMLdrOffset(buf[off+8:off+12], delta&0xfff)
	}
}

func writeWord(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
}

// writeARMAddImm patches an ADD ip, X, #imm8 encoding's immediate byte
// (bits [7:0]); the rotate field comes from the pltnCode prototype, so
// callers pass the 8-bit slice of the displacement that rotation places.
func writeARMAddImm(insn []byte, imm8 uint32) {
	insn[0] = byte(imm8)
}

// writeARMLdrOffset patches an LDR Rt, [Rn, #imm]! encoding's 12-bit
// unsigned offset field (bits [11:0]).
func writeARMLdrOffset(insn []byte, imm12 uint32) {
	insn[0] = byte(imm12)
	insn[1] = (insn[1] &^ 0x0f) | byte((imm12>>8)&0x0f)
}
