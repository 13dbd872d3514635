package armbackend

import (
	"testing"

	"armld/pkg/linker"
)

func TestSymbolNeedsCopyReloc(t *testing.T) {
	obj := &linker.Symbol{Dynamic: true, Type: linker.SymObject, Size: 4}
	if !symbolNeedsCopyReloc(obj) {
		t.Fatal("a dynamic, sized, object-typed symbol needs a copy relocation")
	}

	fn := &linker.Symbol{Dynamic: true, Type: linker.SymFunc, Size: 4}
	if symbolNeedsCopyReloc(fn) {
		t.Fatal("function symbols route through the PLT, not a copy relocation")
	}

	zeroSize := &linker.Symbol{Dynamic: true, Type: linker.SymObject, Size: 0}
	if symbolNeedsCopyReloc(zeroSize) {
		t.Fatal("a zero-size object symbol has nothing to copy")
	}

	notDynamic := &linker.Symbol{Dynamic: false, Type: linker.SymObject, Size: 4}
	if symbolNeedsCopyReloc(notDynamic) {
		t.Fatal("a locally-defined object symbol never needs a copy relocation")
	}
}

func TestCopyRelocsReserveIdempotent(t *testing.T) {
	c := NewCopyRelocs()
	sym := linker.NewSymbol("errno")
	sym.Type = linker.SymObject
	sym.Size = 4

	c.Reserve(sym)
	if !c.HasEntries() {
		t.Fatal("HasEntries must report true after a Reserve call")
	}
	if !Reserved(sym.Reserved).Has(ReserveRel) {
		t.Fatal("Reserve must set ReserveRel for idempotence")
	}

	c.Reserve(sym)
	if len(c.bss.syms) != 1 {
		t.Fatalf("len(bss.syms) = %d, want 1 after repeat Reserve", len(c.bss.syms))
	}
}

// TestCopyRelocsReserveRedefinesSymbolIntoBSS covers testable property 7
// and S3: the reserved symbol must end up pointing inside .bss, word-
// aligned, sized to the symbol, with any weak binding promoted to global.
func TestCopyRelocsReserveRedefinesSymbolIntoBSS(t *testing.T) {
	c := NewCopyRelocs()

	g := linker.NewSymbol("g")
	g.Type = linker.SymObject
	g.Size = 4
	g.Dynamic = true
	g.IsWeak = true
	g.Binding = linker.BindWeak

	c.Reserve(g)

	if g.OutputSection != linker.Chunker(c.bss) {
		t.Fatal("Reserve must redefine the symbol's OutputSection into .bss")
	}
	if g.Value != 0 {
		t.Fatalf("g.Value = %d, want 0 (first slot in an empty region)", g.Value)
	}
	if g.IsWeak || g.Binding != linker.BindGlobal {
		t.Fatal("Reserve must promote a weak binding to global")
	}
	if c.bss.Shdr.Size != 4 {
		t.Fatalf("bss size = %d, want 4 (sized to the first symbol)", c.bss.Shdr.Size)
	}

	odd := linker.NewSymbol("odd")
	odd.Type = linker.SymObject
	odd.Size = 1
	odd.Dynamic = true
	c.Reserve(odd)
	if odd.Value != 4 {
		t.Fatalf("odd.Value = %d, want 4 (right after g's 4-byte slot)", odd.Value)
	}

	tail := linker.NewSymbol("tail")
	tail.Type = linker.SymObject
	tail.Size = 4
	tail.Dynamic = true
	c.Reserve(tail)
	if tail.Value != 8 {
		t.Fatalf("tail.Value = %d, want 8 (word-aligned past odd's 1-byte slot)", tail.Value)
	}
	if c.bss.Shdr.Size != 12 {
		t.Fatalf("bss size = %d, want 12", c.bss.Shdr.Size)
	}
}

// TestCopyRelocsReserveTLSUsesTBSS: a thread-local symbol's copy relocation
// must land in .tbss, not .bss.
func TestCopyRelocsReserveTLSUsesTBSS(t *testing.T) {
	c := NewCopyRelocs()

	tlsSym := linker.NewSymbol("tls_counter")
	tlsSym.Type = linker.SymTLS
	tlsSym.Size = 4
	tlsSym.Dynamic = true

	c.Reserve(tlsSym)

	if tlsSym.OutputSection != linker.Chunker(c.tbss) {
		t.Fatal("a TLS copy-relocation symbol must be redefined into .tbss")
	}
	if len(c.bss.syms) != 0 {
		t.Fatal(".bss must stay untouched by a TLS reservation")
	}
	if c.tbss.Shdr.Flags&0x400 == 0 { // SHF_TLS
		t.Fatal(".tbss must carry SHF_TLS")
	}
}

// TestChunksReflectsBothRegions confirms Chunks() only surfaces regions
// that actually received a reservation.
func TestChunksReflectsBothRegions(t *testing.T) {
	c := NewCopyRelocs()
	if got := c.Chunks(); len(got) != 0 {
		t.Fatalf("Chunks() = %d entries, want 0 before any reservation", len(got))
	}

	sym := linker.NewSymbol("g")
	sym.Type = linker.SymObject
	sym.Size = 4
	sym.Dynamic = true
	c.Reserve(sym)

	got := c.Chunks()
	if len(got) != 1 || got[0] != linker.Chunker(c.bss) {
		t.Fatalf("Chunks() = %+v, want exactly [.bss]", got)
	}
}
