package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

func newTestContext() *linker.Context {
	ctx := linker.NewContext()
	ctx.Config.Type = linker.CodeGenDynObj
	ctx.Backend = NewBackend(ctx)
	return ctx
}

func TestRelDynAddAndFinalize(t *testing.T) {
	r := NewRelDyn()
	r.Add(0x100, R_ARM_RELATIVE, 0, 0)
	r.Add(0x200, R_ARM_GLOB_DAT, 3, 0)
	r.FinalizeSectionSize()

	if r.Shdr.Size != 16 {
		t.Fatalf("Shdr.Size = %d, want 16 (2 entries x 8 bytes)", r.Shdr.Size)
	}
	if len(r.Rels) != 2 {
		t.Fatalf("len(Rels) = %d, want 2", len(r.Rels))
	}
}

func TestRelDynCopyBufEncoding(t *testing.T) {
	r := NewRelDyn()
	r.Add(0x1000, R_ARM_GLOB_DAT, 5, 0)
	r.FinalizeSectionSize()

	ctx := &linker.Context{Buf: make([]byte, r.Shdr.Size)}
	r.CopyBuf(ctx)

	offset := uint32(ctx.Buf[0]) | uint32(ctx.Buf[1])<<8 | uint32(ctx.Buf[2])<<16 | uint32(ctx.Buf[3])<<24
	if offset != 0x1000 {
		t.Fatalf("r_offset = %#x, want 0x1000", offset)
	}
	info := uint32(ctx.Buf[4]) | uint32(ctx.Buf[5])<<8 | uint32(ctx.Buf[6])<<16 | uint32(ctx.Buf[7])<<24
	wantInfo := uint32(5)<<8 | uint32(R_ARM_GLOB_DAT&0xff)
	if info != wantInfo {
		t.Fatalf("r_info = %#x, want %#x", info, wantInfo)
	}
}

func TestDynSymIdxOfRegistersOnce(t *testing.T) {
	ctx := newTestContext()
	sym := linker.NewSymbol("foo")

	idx1 := dynSymIdxOf(ctx, sym)
	idx2 := dynSymIdxOf(ctx, sym)
	if idx1 != idx2 {
		t.Fatalf("dynSymIdxOf returned different indices (%d, %d) for the same symbol", idx1, idx2)
	}
	if idx1 == 0 {
		t.Fatal("a registered symbol must never sit at dynsym index 0 (reserved for the null entry)")
	}
}

func TestRelPltCountsMatchPLTEntries(t *testing.T) {
	got := NewGOT()
	plt := NewPLT(got)
	relplt := NewRelPlt(plt)

	syms := []*linker.Symbol{linker.NewSymbol("a"), linker.NewSymbol("b")}
	for _, s := range syms {
		plt.ReserveEntry(s)
	}
	relplt.FinalizeSectionSize()

	got.Shdr.Addr = 0x9000
	ctx := newTestContext()
	ctx.Buf = make([]byte, relplt.Shdr.Size)
	relplt.CopyBuf(ctx)

	for i := range syms {
		off := i * 8
		info := uint32(ctx.Buf[off+4]) | uint32(ctx.Buf[off+5])<<8 | uint32(ctx.Buf[off+6])<<16 | uint32(ctx.Buf[off+7])<<24
		if info&0xff != uint32(R_ARM_JUMP_SLOT) {
			t.Fatalf("entry %d: reloc type = %d, want R_ARM_JUMP_SLOT", i, info&0xff)
		}
	}
}
