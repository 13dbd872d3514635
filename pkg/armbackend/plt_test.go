package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

func TestPLTReserveEntryPairsWithGOT(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	sym := linker.NewSymbol("callee")

	plt.ReserveEntry(sym)

	if !Reserved(sym.Reserved).Has(ReservePLT) {
		t.Fatal("ReserveEntry must set ReservePLT")
	}
	if !Reserved(sym.Reserved).Has(ReserveGOT) {
		t.Fatal("ReserveEntry must also reserve a paired GOT slot")
	}
	if sym.PltIdx != 0 {
		t.Fatalf("PltIdx = %d, want 0", sym.PltIdx)
	}
	if len(got.Entries) != 1 {
		t.Fatalf("GOT got %d entries, want 1 (the paired slot)", len(got.Entries))
	}
}

func TestPLTReserveEntryIdempotent(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	sym := linker.NewSymbol("callee")

	plt.ReserveEntry(sym)
	plt.ReserveEntry(sym)

	if len(plt.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1 after repeat ReserveEntry", len(plt.Entries))
	}
}

// Invariant 2 (§8): |PLT1 entries| = |rel.plt entries| = paired GOT count.
func TestPLTGOTRelPltCountsMatch(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	relplt := NewRelPlt(plt)

	plt.ReserveEntry(linker.NewSymbol("a"))
	plt.ReserveEntry(linker.NewSymbol("b"))
	plt.ReserveEntry(linker.NewSymbol("c"))

	if len(plt.Entries) != len(got.Entries) {
		t.Fatalf("len(PLT.Entries)=%d != len(GOT.Entries)=%d", len(plt.Entries), len(got.Entries))
	}
	relplt.FinalizeSectionSize()
	if relplt.Shdr.Size != uint32(len(plt.Entries))*8 {
		t.Fatalf(".rel.plt size = %d, want %d (8 bytes/entry x %d)", relplt.Shdr.Size, len(plt.Entries)*8, len(plt.Entries))
	}
}

func TestPLTFinalizeSectionSize(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)

	plt.FinalizeSectionSize()
	if plt.Shdr.Size != 0 {
		t.Fatalf("empty PLT size = %d, want 0", plt.Shdr.Size)
	}

	plt.ReserveEntry(linker.NewSymbol("a"))
	plt.ReserveEntry(linker.NewSymbol("b"))
	plt.FinalizeSectionSize()

	want := uint32(plt0Size + 2*pltEntrySize)
	if plt.Shdr.Size != want {
		t.Fatalf("PLT size = %d, want %d", plt.Shdr.Size, want)
	}
}

func TestPLTEntryAddr(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	plt.Shdr.Addr = 0x8000

	a := linker.NewSymbol("a")
	b := linker.NewSymbol("b")
	plt.ReserveEntry(a)
	plt.ReserveEntry(b)

	if want := uint64(0x8000 + plt0Size); plt.EntryAddr(a) != want {
		t.Fatalf("EntryAddr(a) = %#x, want %#x", plt.EntryAddr(a), want)
	}
	if want := uint64(0x8000 + plt0Size + pltEntrySize); plt.EntryAddr(b) != want {
		t.Fatalf("EntryAddr(b) = %#x, want %#x", plt.EntryAddr(b), want)
	}
}

func TestPLTCopyBufWritesPLT0AndPLTn(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	sym := linker.NewSymbol("callee")
	plt.ReserveEntry(sym)
	plt.FinalizeSectionSize()

	got.Shdr.Addr = 0x9000
	plt.Shdr.Addr = 0x8000

	ctx := &linker.Context{Buf: make([]byte, plt.Shdr.Size)}
	plt.CopyBuf(ctx)

	buf := ctx.Buf
	// The first 16 bytes of PLT0 (the fixed instruction stream) survive
	// verbatim; only the trailing .word displacement (bytes 16-19) is
	// computed from got/plt addresses.
	for i := 0; i < 16; i++ {
		if buf[i] != plt0Code[i] {
			t.Fatalf("PLT0 byte %d = %#x, want %#x", i, buf[i], plt0Code[i])
		}
	}

	stub := pltnCode()
	off := plt0Size
	// bytes 1,2,3 (opcode/register fields of the first ADD) and 5,6,7
	// (second ADD) and 11 (LDR opcode byte) are never touched by the
	// immediate-patching helpers; the rest carry the computed offset.
	for _, i := range []int{1, 2, 3, 5, 6, 7, 11} {
		if buf[off+i] != stub[i] {
			t.Fatalf("PLTn byte %d = %#x, want unpatched prototype byte %#x", i, buf[off+i], stub[i])
		}
	}
}
