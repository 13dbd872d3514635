package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

func TestInitTargetSymbolsOnlyDefinesReferenced(t *testing.T) {
	ctx := newTestContext()
	linker.GetSymbolByName(ctx, "_GLOBAL_OFFSET_TABLE_")

	b := ctx.Backend.(*Backend)
	b.InitTargetSymbols(ctx)

	got := ctx.SymbolMap["_GLOBAL_OFFSET_TABLE_"]
	if got.OutputSection != b.got {
		t.Fatal("_GLOBAL_OFFSET_TABLE_ must be anchored to the GOT chunk once referenced")
	}
	if got.Binding != linker.BindGlobal {
		t.Fatal("_GLOBAL_OFFSET_TABLE_ must be a global symbol")
	}

	if _, ok := ctx.SymbolMap["__exidx_start"]; ok {
		t.Fatal("a symbol never referenced must not appear in SymbolMap at all")
	}
	if b.exidxStartSym != nil {
		t.Fatal("__exidx_start must stay nil when nothing referenced it")
	}
}

func TestResolveExidxBoundsAfterLayout(t *testing.T) {
	ctx := newTestContext()
	linker.GetSymbolByName(ctx, "__exidx_start")
	linker.GetSymbolByName(ctx, "__exidx_end")

	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)
	b.InitTargetSymbols(ctx)
	b.exidx.Shdr.Size = 64

	b.resolveExidxBounds()

	start := ctx.SymbolMap["__exidx_start"]
	end := ctx.SymbolMap["__exidx_end"]
	if start.OutputSection != b.exidx || start.Value != 0 {
		t.Fatal("__exidx_start must point at offset 0 of .ARM.exidx")
	}
	if end.OutputSection != b.exidx || end.Value != 64 {
		t.Fatalf("__exidx_end.Value = %d, want 64 (the section's size)", end.Value)
	}
	if !start.Dynamic || !end.Dynamic {
		t.Fatal("both bound symbols must be promoted to dynamic when .ARM.exidx is non-empty")
	}
}

func TestResolveExidxBoundsWhenEmpty(t *testing.T) {
	ctx := newTestContext()
	linker.GetSymbolByName(ctx, "__exidx_start")
	linker.GetSymbolByName(ctx, "__exidx_end")

	b := ctx.Backend.(*Backend)
	b.InitTargetSections(ctx)
	b.InitTargetSymbols(ctx)
	// b.exidx.Shdr.Size left at 0: nothing contributed an exception table.

	b.resolveExidxBounds()

	start := ctx.SymbolMap["__exidx_start"]
	end := ctx.SymbolMap["__exidx_end"]
	if start.OutputSection != nil || start.Value != 0 || start.Type != linker.SymNoType {
		t.Fatal("__exidx_start must be absolute zero, untyped, when .ARM.exidx is empty")
	}
	if end.OutputSection != nil || end.Value != 0 || end.Type != linker.SymNoType {
		t.Fatal("__exidx_end must be absolute zero, untyped, when .ARM.exidx is empty")
	}
	if start.Dynamic || end.Dynamic {
		t.Fatal("an empty .ARM.exidx must not promote either bound symbol to dynamic")
	}
}

func TestDynSymtabAddIsIdempotentAndSkipsNullEntry(t *testing.T) {
	d := NewDynSymtab()
	sym := linker.NewSymbol("foo")

	idx1 := d.Add(sym)
	idx2 := d.Add(sym)
	if idx1 != idx2 {
		t.Fatalf("Add returned different indices (%d, %d) for the same symbol", idx1, idx2)
	}
	if idx1 == 0 {
		t.Fatal("index 0 is reserved for the null dynsym entry")
	}
	if d.IndexOf(linker.NewSymbol("never-added")) != 0 {
		t.Fatal("IndexOf on an unregistered symbol must return 0")
	}
}

func TestDynSymtabFinalizeSectionSizeIncludesNullEntry(t *testing.T) {
	d := NewDynSymtab()
	d.Add(linker.NewSymbol("a"))
	d.Add(linker.NewSymbol("b"))
	d.FinalizeSectionSize()

	want := uint32(3) * 16 // null entry + 2 real ones, 16 bytes each
	if d.Shdr.Size != want {
		t.Fatalf("Shdr.Size = %d, want %d", d.Shdr.Size, want)
	}
}
