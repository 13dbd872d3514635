package linker

import (
	"debug/elf"
	"math"
	"sort"

	"armld/pkg/utils"
)

// The pipeline below drives ObjectFile/InputSection/Symbol methods in the
// fixed order the teacher-family (unicornx-rvld, dongAxis-rvld) establishes
// for a mold-style linker, extended at CreateSyntheticSections/
// ScanRelocations/Relax to hand target-specific decisions to ctx.Backend.

func ResolveSymbols(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx)
	}

	MarkLiveObjects(ctx)

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			file.ClearSymbols()
		}
	}

	ctx.Objs = utils.RemoveIf(ctx.Objs, func(file *ObjectFile) bool {
		return !file.IsAlive
	})

	for _, file := range ctx.Objs {
		file.ClaimUnresolvedSymbols()
	}
}

func MarkLiveObjects(ctx *Context) {
	roots := make([]*ObjectFile, 0)
	for _, file := range ctx.Objs {
		if file.IsAlive {
			roots = append(roots, file)
		}
	}

	utils.Assert(len(roots) > 0)

	for len(roots) > 0 {
		file := roots[0]
		roots = roots[1:]

		file.MarkLiveObjects(ctx, func(f *ObjectFile) {
			roots = append(roots, f)
		})
	}
}

func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterSectionPieces()
	}
}

func ComputeMergedSectionSizes(ctx *Context) {
	for _, osec := range ctx.MergedSections {
		osec.AssignOffsets()
	}
}

// CreateSyntheticSections pushes the always-present ELF/program/section
// headers, then hands off to the backend (when one is registered and the
// output isn't merely relocatable) to push .got/.plt/.rel.dyn/.rel.plt
// in the order it wants them.
func CreateSyntheticSections(ctx *Context) {
	push := func(chunk Chunker) Chunker {
		ctx.Chunks = append(ctx.Chunks, chunk)
		return chunk
	}

	ctx.Ehdr = push(NewOutputEhdr()).(*OutputEhdr)
	ctx.Phdr = push(NewOutputPhdr()).(*OutputPhdr)
	ctx.Shdr = push(NewOutputShdr()).(*OutputShdr)

	if ctx.Backend != nil && ctx.Config.Type != CodeGenObject {
		ctx.Backend.InitTargetSections(ctx)
		ctx.Backend.InitTargetSymbols(ctx)
		for _, chunk := range ctx.Backend.Chunks() {
			ctx.Chunks = append(ctx.Chunks, chunk)
		}
	}
}

func BinSections(ctx *Context) {
	group := make([][]*InputSection, len(ctx.OutputSections))
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive || isec.OutputSection == nil {
				continue
			}

			idx := isec.OutputSection.Idx
			group[idx] = append(group[idx], isec)
		}
	}

	for idx, osec := range ctx.OutputSections {
		osec.Members = group[idx]
	}
}

func CollectOutputSections(ctx *Context) []Chunker {
	osecs := make([]Chunker, 0)
	for _, osec := range ctx.OutputSections {
		if len(osec.Members) > 0 {
			osecs = append(osecs, osec)
		}
	}

	for _, osec := range ctx.MergedSections {
		if osec.Shdr.Size > 0 {
			osecs = append(osecs, osec)
		}
	}

	return osecs
}

func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		offset := uint32(0)
		p2align := uint32(0)

		for _, isec := range osec.Members {
			offset = uint32(utils.AlignTo(uint64(offset), uint64(1)<<isec.P2Align))
			isec.Offset = offset
			offset += uint32(len(isec.Contents))
			if p2align < isec.P2Align {
				p2align = isec.P2Align
			}
		}

		osec.Shdr.Size = offset
		osec.Shdr.Addralign = 1 << p2align
	}
}

func SortOutputSections(ctx *Context) {
	rank := func(chunk Chunker) int32 {
		typ := chunk.GetShdr().Type
		flags := chunk.GetShdr().Flags

		if flags&uint32(elf.SHF_ALLOC) == 0 {
			return math.MaxInt32 - 1
		}
		if chunk == Chunker(ctx.Shdr) {
			return math.MaxInt32
		}
		if chunk == Chunker(ctx.Ehdr) {
			return 0
		}
		if chunk == Chunker(ctx.Phdr) {
			return 1
		}
		if typ == uint32(elf.SHT_NOTE) {
			return 2
		}

		b2i := func(b bool) int32 {
			if b {
				return 1
			}
			return 0
		}

		writeable := b2i(flags&uint32(elf.SHF_WRITE) != 0)
		notExec := b2i(flags&uint32(elf.SHF_EXECINSTR) == 0)
		notTls := b2i(flags&uint32(elf.SHF_TLS) == 0)
		bss := b2i(typ == uint32(elf.SHT_NOBITS))

		return writeable<<7 | notExec<<6 | notTls<<5 | bss<<4
	}

	sort.SliceStable(ctx.Chunks, func(i, j int) bool {
		return rank(ctx.Chunks[i]) < rank(ctx.Chunks[j])
	})
}

// SetOutputSectionOffsets lays out every allocated chunk's virtual address
// starting at ImageBase, then derives file offsets from addresses for the
// allocated run and packs the remaining (non-allocated, e.g. .symtab/
// .strtab) chunks immediately after. Grounded on unicornx-rvld's passes.go.
func SetOutputSectionOffsets(ctx *Context) uint32 {
	addr := uint32(ImageBase)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShdr().Flags&uint32(elf.SHF_ALLOC) == 0 {
			continue
		}

		addr = uint32(utils.AlignTo(uint64(addr), uint64(chunk.GetShdr().Addralign)))
		chunk.GetShdr().Addr = addr

		if !isTbss(chunk) {
			addr += chunk.GetShdr().Size
		}
	}

	i := 0
	if len(ctx.Chunks) == 0 {
		return 0
	}
	first := ctx.Chunks[0]
	for {
		shdr := ctx.Chunks[i].GetShdr()
		shdr.Offset = shdr.Addr - first.GetShdr().Addr
		i++

		if i >= len(ctx.Chunks) || ctx.Chunks[i].GetShdr().Flags&uint32(elf.SHF_ALLOC) == 0 {
			break
		}
	}

	lastShdr := ctx.Chunks[i-1].GetShdr()
	fileoff := lastShdr.Offset + lastShdr.Size

	for ; i < len(ctx.Chunks); i++ {
		shdr := ctx.Chunks[i].GetShdr()
		fileoff = uint32(utils.AlignTo(uint64(fileoff), uint64(shdr.Addralign)))
		shdr.Offset = fileoff
		fileoff += shdr.Size
	}

	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}

	return fileoff
}

// ScanRelocations delegates per-relocation classification to the backend,
// which is where GOT/PLT/copy-relocation/dynamic-relocation reservations
// actually happen (see armbackend's Backend.ScanRelocation).
func ScanRelocations(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ScanRelocations(ctx)
	}
}

// Relax drives the branch-relaxation fixed point: DoRelax may grow a
// section (inserting a stub), which can push some other branch out of
// range, so the outer loop keeps calling it until nothing changes.
func Relax(ctx *Context) {
	if ctx.Backend == nil {
		return
	}
	const maxPasses = 64
	for pass := 0; pass < maxPasses; pass++ {
		if ctx.Backend.DoRelax(ctx) {
			return
		}
	}
	utils.Fatal("branch relaxation did not converge")
}
