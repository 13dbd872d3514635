package armbackend

import (
	"debug/elf"
	"fmt"

	"armld/pkg/linker"
)

const armBranchRange = 32 * 1024 * 1024
const thumbBranchRange = 4 * 1024 * 1024

// stubKey identifies one relocation site so relaxPass only ever creates a
// single stub per site across passes (idempotence: a later pass that finds
// the same site still out of range reuses the cached stub rather than
// growing the island again).
type stubKey struct {
	isec   *linker.InputSection
	offset uint32
}

// relaxPass implements one iteration of §4.5's doRelax. It walks every live
// SHF_ALLOC input section's relocations looking for stub-eligible branches
// whose displacement exceeds the ISA's encodable range, creates a stub for
// each newly-discovered one, and — since this repository reuses the
// generic pipeline's own layout pass rather than hand-reconciling fragment
// offsets (see DESIGN.md) — simply re-runs ComputeSectionSizes through
// SetOutputSectionOffsets when anything changed, so every later section's
// address cascades correctly before the next pass measures distances
// again. Returns true (finished) once a pass creates no new stub.
func (b *Backend) relaxPass(ctx *linker.Context) bool {
	if b.stubCache == nil {
		b.stubCache = make(map[stubKey]*linker.Symbol)
	}

	type pending struct {
		osec *linker.OutputSection
		code []byte
		name string
	}
	var toInsert []pending

	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive || isec.OutputSection == nil {
				continue
			}
			if isec.OutputSection.Shdr.Flags&uint32(elf.SHF_ALLOC) == 0 {
				continue
			}

			for _, rel := range isec.GetRels() {
				typ := normalizeType(RelType(rel.Type))
				if !isStubEligibleType(typ) {
					continue
				}

				key := stubKey{isec: isec, offset: rel.Offset}
				if _, ok := b.stubCache[key]; ok {
					continue
				}

				sym := file.Symbols[rel.SymIdx]
				target := b.branchTarget(sym)
				pc := isec.GetAddr() + uint64(rel.Offset) + 8

				from := isaOf(typ)
				rng := uint64(armBranchRange)
				if from == ISAThumb {
					rng = thumbBranchRange
				}

				delta := int64(target) - int64(pc)
				if delta < 0 {
					delta = -delta
				}
				if uint64(delta) <= rng {
					continue
				}

				to := targetISA(sym, target)
				code := b.stubFactory.Create(from, to, uint32(target))
				name := fmt.Sprintf("$stub.%d", len(b.stubCache))
				stubSym := linker.GetSymbolByName(ctx, name)
				stubSym.Binding = linker.BindLocal
				stubSym.Type = linker.SymFunc
				b.stubCache[key] = stubSym

				toInsert = append(toInsert, pending{osec: isec.OutputSection, code: code, name: name})
			}
		}
	}

	if len(toInsert) == 0 {
		return true
	}

	for _, p := range toInsert {
		synth := linker.NewSyntheticInputSection(p.osec, p.code, 2)
		p.osec.Members = append(p.osec.Members, synth)
		if sym, ok := ctx.SymbolMap[p.name]; ok {
			sym.SetInputSection(synth)
		}
	}

	linker.ComputeSectionSizes(ctx)
	linker.SortOutputSections(ctx)
	linker.SetOutputSectionOffsets(ctx)

	return false
}

// branchTarget resolves a relocation's symbol to the address a branch
// should aim for. A PLT-bound symbol resolves to .plt's own base address
// rather than its specific PLT1 slot — the §9 "known imprecision" this
// design explicitly preserves rather than fixes.
func (b *Backend) branchTarget(sym *linker.Symbol) uint64 {
	if Reserved(sym.Reserved).Has(ReservePLT) {
		return uint64(b.plt.Shdr.Addr)
	}
	return sym.GetAddr()
}

// targetISA reports which instruction set a branch actually lands in,
// per the AAELF32 convention of marking a Thumb function's symbol value
// with bit 0 set. A PLT-bound symbol always resolves to ARM code (the
// PLT stubs this backend emits are themselves ARM), so its reserved PLT
// address is checked directly rather than sym's own (possibly Thumb)
// definition.
func targetISA(sym *linker.Symbol, resolvedTarget uint64) ISA {
	if Reserved(sym.Reserved).Has(ReservePLT) {
		return ISAArm
	}
	if resolvedTarget&1 != 0 {
		return ISAThumb
	}
	return ISAArm
}
