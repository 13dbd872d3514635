package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

func TestGOTReserveIsIdempotent(t *testing.T) {
	g := NewGOT()
	sym := linker.NewSymbol("foo")

	g.Reserve(sym, false)
	firstIdx := sym.GotIdx
	if !Reserved(sym.Reserved).Has(ReserveGOT) {
		t.Fatal("Reserve(dynamic=false) must set ReserveGOT")
	}
	if len(g.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1", len(g.Entries))
	}

	g.Reserve(sym, false)
	if len(g.Entries) != 1 {
		t.Fatal("Reserve called twice on the same symbol must not grow Entries")
	}
	if sym.GotIdx != firstIdx {
		t.Fatal("GotIdx must not change on a repeat Reserve call")
	}
}

func TestGOTReserveDynamicSetsGOTRel(t *testing.T) {
	g := NewGOT()
	sym := linker.NewSymbol("bar")
	g.Reserve(sym, true)

	if !Reserved(sym.Reserved).Has(GOTRel) {
		t.Fatal("Reserve(dynamic=true) must set GOTRel, not ReserveGOT")
	}
	if Reserved(sym.Reserved).Has(ReserveGOT) {
		t.Fatal("only one of ReserveGOT/GOTRel may be set")
	}
}

func TestGOTEntryIndicesStartAfterGOT0(t *testing.T) {
	g := NewGOT()
	a := linker.NewSymbol("a")
	b := linker.NewSymbol("b")
	g.Reserve(a, false)
	g.Reserve(b, false)

	if a.GotIdx != int32(got0Words) {
		t.Fatalf("first entry GotIdx = %d, want %d (right after GOT0)", a.GotIdx, got0Words)
	}
	if b.GotIdx != int32(got0Words+1) {
		t.Fatalf("second entry GotIdx = %d, want %d", b.GotIdx, got0Words+1)
	}
}

func TestGOTFinalizeSectionSize(t *testing.T) {
	g := NewGOT()
	g.Reserve(linker.NewSymbol("a"), false)
	g.Reserve(linker.NewSymbol("b"), true)
	g.FinalizeSectionSize()

	want := uint32(got0Words+2) * gotEntrySize
	if g.Shdr.Size != want {
		t.Fatalf("Shdr.Size = %d, want %d", g.Shdr.Size, want)
	}
}

func TestGOTReserveForPLTSharesReservation(t *testing.T) {
	g := NewGOT()
	sym := linker.NewSymbol("callee")

	idx := g.ReserveForPLT(sym)
	if idx != sym.GotIdx {
		t.Fatal("ReserveForPLT must return the same index it stored on the symbol")
	}
	if !Reserved(sym.Reserved).Has(ReserveGOT) {
		t.Fatal("ReserveForPLT must reserve via the non-dynamic (ReserveGOT) path")
	}

	// A second call (as PLT.ReserveEntry -> GOT.ReserveForPLT would make on
	// a repeat scan of the same relocation) must not grow Entries again.
	g.ReserveForPLT(sym)
	if len(g.Entries) != 1 {
		t.Fatalf("len(Entries) = %d, want 1 after repeat ReserveForPLT", len(g.Entries))
	}
}

func TestGOTCopyBufSkipsGOTRelSlots(t *testing.T) {
	g := NewGOT()
	linkTimeKnown := linker.NewSymbol("known")
	linkTimeKnown.Value = 0x1000
	g.Reserve(linkTimeKnown, false)

	dynamic := linker.NewSymbol("dynamic")
	g.Reserve(dynamic, true)

	g.FinalizeSectionSize()
	g.ApplyGOT0(0x2000)

	ctx := &linker.Context{Buf: make([]byte, g.Shdr.Size)}
	g.CopyBuf(ctx)

	got0 := uint32(ctx.Buf[0]) | uint32(ctx.Buf[1])<<8 | uint32(ctx.Buf[2])<<16 | uint32(ctx.Buf[3])<<24
	if got0 != 0x2000 {
		t.Fatalf("GOT0 = %#x, want 0x2000", got0)
	}

	knownOff := got0Words * gotEntrySize
	knownVal := uint32(ctx.Buf[knownOff]) | uint32(ctx.Buf[knownOff+1])<<8 | uint32(ctx.Buf[knownOff+2])<<16 | uint32(ctx.Buf[knownOff+3])<<24
	if knownVal != 0x1000 {
		t.Fatalf("link-time-known slot = %#x, want 0x1000", knownVal)
	}

	dynOff := (got0Words + 1) * gotEntrySize
	for i := 0; i < 4; i++ {
		if ctx.Buf[dynOff+i] != 0 {
			t.Fatalf("GOTRel slot byte %d = %#x, want 0 (left for the dynamic linker)", i, ctx.Buf[dynOff+i])
		}
	}
}
