package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

// TestChunksOmitsEmptyTables: a fresh backend with nothing scanned must
// contribute no chunks at all in a non-shared-object link.
func TestChunksOmitsEmptyTables(t *testing.T) {
	ctx := execContext()
	b := ctx.Backend.(*Backend)

	if got := b.Chunks(); len(got) != 0 {
		t.Fatalf("Chunks() = %d entries, want 0 for an empty exec link", len(got))
	}
}

// TestChunksIncludesGOTForDynObj: a shared-object link always carries a
// GOT chunk, even with no reservations, since GOT0's header is always
// present.
func TestChunksIncludesGOTForDynObj(t *testing.T) {
	ctx := newTestContext() // CodeGenDynObj, per reldyn_test.go's helper
	b := ctx.Backend.(*Backend)

	chunks := b.Chunks()
	found := false
	for _, c := range chunks {
		if c == linker.Chunker(b.got) {
			found = true
		}
	}
	if !found {
		t.Fatal("a shared-object link must always contribute .got, even empty")
	}
}

// TestChunksOrdersGOTBeforePLTBeforeRelTables checks the ordering the doc
// comment promises: .got, then .plt, then .rel.dyn/.rel.plt/.dynsym.
func TestChunksOrdersGOTBeforePLTBeforeRelTables(t *testing.T) {
	ctx := newTestContext()
	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)

	sym := globalUndefFuncSym("callee")
	b.plt.ReserveEntry(sym)
	b.reldyn.Add(0, R_ARM_RELATIVE, 0, 0)

	chunks := b.Chunks()
	index := func(target linker.Chunker) int {
		for i, c := range chunks {
			if c == target {
				return i
			}
		}
		return -1
	}

	gotIdx := index(linker.Chunker(b.got))
	pltIdx := index(linker.Chunker(b.plt))
	reldynIdx := index(linker.Chunker(b.reldyn))
	relpltIdx := index(linker.Chunker(b.relplt))

	if gotIdx < 0 || pltIdx < 0 || reldynIdx < 0 || relpltIdx < 0 {
		t.Fatalf("expected all four chunks present: got=%d plt=%d reldyn=%d relplt=%d", gotIdx, pltIdx, reldynIdx, relpltIdx)
	}
	if !(gotIdx < pltIdx && pltIdx < reldynIdx && reldynIdx < relpltIdx) {
		t.Fatalf("chunk order wrong: got=%d plt=%d reldyn=%d relplt=%d, want strictly increasing", gotIdx, pltIdx, reldynIdx, relpltIdx)
	}
}

// TestDoCreateProgramHdrsOmitsSegmentWhenExidxEmpty covers the negative
// half of testable invariant 6: no .ARM.exidx content means no PT_ARM_EXIDX
// segment at all.
func TestDoCreateProgramHdrsOmitsSegmentWhenExidxEmpty(t *testing.T) {
	ctx := execContext()
	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)

	if got := b.DoCreateProgramHdrs(ctx); got != nil {
		t.Fatalf("DoCreateProgramHdrs() = %+v, want nil when .ARM.exidx is empty", got)
	}
}

// TestDoCreateProgramHdrsIncludesSegmentWhenExidxNonEmpty covers the
// positive half of invariant 6: a sized .ARM.exidx gets exactly one
// PT_ARM_EXIDX segment spanning it.
func TestDoCreateProgramHdrsIncludesSegmentWhenExidxNonEmpty(t *testing.T) {
	ctx := execContext()
	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)

	b.exidx.Shdr.Size = 32
	b.exidx.Shdr.Addr = 0x9000
	b.exidx.Shdr.Offset = 0x1000
	b.exidx.Shdr.Addralign = 4

	hdrs := b.DoCreateProgramHdrs(ctx)
	if len(hdrs) != 1 {
		t.Fatalf("DoCreateProgramHdrs() returned %d segments, want 1", len(hdrs))
	}
	ph := hdrs[0]
	if ph.Type != PT_ARM_EXIDX {
		t.Fatalf("segment Type = %#x, want PT_ARM_EXIDX", ph.Type)
	}
	if ph.VAddr != b.exidx.Shdr.Addr || ph.FileSize != b.exidx.Shdr.Size || ph.MemSize != b.exidx.Shdr.Size {
		t.Fatalf("segment %+v does not span .ARM.exidx's header %+v", ph, b.exidx.Shdr)
	}
}

// TestDoPostLayoutLeavesGOT0ZeroOutsideDynObj: only a shared-object link
// wires GOT[0] to a (future) .dynamic address; everything else gets zero.
func TestDoPostLayoutLeavesGOT0ZeroOutsideDynObj(t *testing.T) {
	ctx := execContext()
	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)

	b.DoPostLayout(ctx)

	ctx.Buf = make([]byte, 16)
	b.got.Shdr.Offset = 0
	b.got.CopyBuf(ctx)
	if ctx.Buf[0] != 0 || ctx.Buf[1] != 0 || ctx.Buf[2] != 0 || ctx.Buf[3] != 0 {
		t.Fatal("GOT[0] must be zero outside a shared-object link")
	}
}

// TestNewBackendPanicsOnDarwinTriple confirms the platform guard in
// NewBackend rejects unsupported output triples outright.
func TestNewBackendPanicsOnDarwinTriple(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewBackend must panic for a Darwin output triple")
		}
	}()

	ctx := linker.NewContext()
	ctx.Config.Target.Triple = linker.ParseTriple("arm-apple-darwin")
	NewBackend(ctx)
}
