package linker

import (
	"armld/pkg/utils"
	"debug/elf"
	"math"
)

// Relocation is a REL entry read out of an input section's .rel<name>
// counterpart, plus the addend ScanRelocations recovers from the bytes
// being patched (the ARM ABI keeps addends in-place, unlike RELA).
// Grounded on unicornx-rvld's inputsection.go ScanRelocations/ApplyRelocAlloc,
// widened to the REL (not RELA) encoding the ARM ABI uses.
type Relocation struct {
	Offset uint32
	Type   uint32
	SymIdx uint32
	Addend int32
}

// InputSection is one SHF_ALLOC-or-not input section belonging to an
// ObjectFile. Grounded on the teacher's inputsection.go, extended with the
// bookkeeping (IsAlive, RelsecIdx, P2Align, Rels, output placement) that the
// teacher's snapshot deferred to a later iteration but the sibling forks
// (unicornx-rvld, dongAxis-rvld) already carry.
type InputSection struct {
	File      *ObjectFile
	Contents  []byte
	Shndx     uint32
	RelsecIdx uint32
	P2Align   uint32
	IsAlive   bool

	Rels []Relocation

	OutputSection *OutputSection
	Offset        uint32
}

func NewInputSection(ctx *Context, file *ObjectFile, shndx uint32) *InputSection {
	s := &InputSection{
		File:      file,
		Shndx:     shndx,
		RelsecIdx: math.MaxUint32,
		IsAlive:   true,
	}

	shdr := s.Shdr()
	s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]

	if shdr.Addralign > 0 {
		for p2 := uint32(0); p2 < 32; p2++ {
			if uint32(1)<<p2 == shdr.Addralign {
				s.P2Align = p2
				break
			}
		}
	}

	if shdr.Flags&uint32(elf.SHF_ALLOC) != 0 {
		s.OutputSection = GetOutputSection(ctx, s.Name(), shdr.Type, shdr.Flags)
	}

	return s
}

// NewSyntheticInputSection wraps backend-generated bytes (e.g. a branch
// stub) as an InputSection with no owning ObjectFile, so it can be appended
// to an OutputSection's Members and flow through the existing
// layout/CopyBuf machinery unmodified. Shndx stays math.MaxUint32 (never a
// valid section index) so Shdr()/Name() are never called on it.
func NewSyntheticInputSection(osec *OutputSection, contents []byte, p2align uint32) *InputSection {
	return &InputSection{
		Shndx:         math.MaxUint32,
		RelsecIdx:     math.MaxUint32,
		IsAlive:       true,
		Contents:      contents,
		P2Align:       p2align,
		OutputSection: osec,
	}
}

func (i *InputSection) Shdr() *SectionHeader {
	utils.Assert(i.Shndx < uint32(len(i.File.Sections)))
	return &i.File.InputFile.Sections[i.Shndx]
}

func (i *InputSection) Name() string {
	return GetNameFromTable(i.File.StrTable, i.Shdr().Name)
}

// GetRels lazily parses the section's REL table from its paired
// SHT_REL section, caching the result (plus recovered addends) in Rels.
func (i *InputSection) GetRels() []Relocation {
	if i.Rels != nil || i.RelsecIdx == math.MaxUint32 {
		return i.Rels
	}

	relShdr := &i.File.InputFile.Sections[i.RelsecIdx]
	raw := i.File.GetRelsFor(relShdr)
	i.Rels = make([]Relocation, len(raw))
	for idx, r := range raw {
		i.Rels[idx] = Relocation{
			Offset: r.Offset,
			Type:   r.Type(),
			SymIdx: r.Sym(),
			Addend: readInPlaceAddend(i, r.Offset, r.Type()),
		}
	}
	return i.Rels
}

// readInPlaceAddend recovers the REL-form addend from the bytes at the
// relocation site, matching the handful of encodings armbackend needs to
// classify relocations correctly. Other encodings (the ARM/Thumb branch
// and instruction-field relocations) are not decoded anywhere; their addend
// is reported as 0.
func readInPlaceAddend(i *InputSection, offset uint32, typ uint32) int32 {
	if int(offset)+4 > len(i.Contents) {
		return 0
	}
	switch elf.R_ARM(typ) {
	case elf.R_ARM_ABS32, elf.R_ARM_REL32, elf.R_ARM_GOT_PREL, elf.R_ARM_GOTOFF,
		elf.R_ARM_TARGET1, elf.R_ARM_TARGET2, elf.R_ARM_GOTPC:
		return int32(utils.Read[uint32](i.Contents[offset:]))
	default:
		return 0
	}
}

func (i *InputSection) GetAddr() uint64 {
	if i.OutputSection == nil {
		return 0
	}
	return uint64(i.OutputSection.Shdr.Addr) + uint64(i.Offset)
}

// WriteTo copies the section's already-relocated contents into the final
// output buffer at its assigned offset.
func (i *InputSection) WriteTo(ctx *Context, buf []byte) {
	if i.File != nil && i.Shdr().Type == uint32(elf.SHT_NOBITS) {
		return
	}
	copy(buf, i.Contents)
}

// ScanRelocations hands every relocation in this section to the registered
// target backend, which decides whether it needs a GOT/PLT/dynamic entry.
func (i *InputSection) ScanRelocations(ctx *Context) {
	if ctx.Backend == nil {
		return
	}
	for _, rel := range i.GetRels() {
		ctx.Backend.ScanRelocation(ctx, i, rel)
	}
}
