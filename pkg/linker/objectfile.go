package linker

import (
	"debug/elf"
	"math"

	"armld/pkg/utils"
)

// ObjectFile is one ET_REL input: the teacher's minimal ObjectFile widened
// with the symbol/section/priority bookkeeping ResolveSymbols and
// MarkLiveObjects need, grounded on dongAxis-rvld's and unicornx-rvld's
// objectfile.go (scoped down: this repository skips SHT_SYMTAB_SHNDX and
// the eh_frame filtering those forks do, since neither bears on
// GOT/PLT/relocation decisions; .note.GNU-stack sections are dropped).
type ObjectFile struct {
	InputFile

	SymtabSection     *SectionHeader
	Sections          []*InputSection
	MergeableSections []*MergeableSection
	Symbols           []*Symbol
	LocalSymbols      []Symbol

	Priority int
	IsAlive  bool
}

func NewObjectFile(file *File, isAlive bool) *ObjectFile {
	o := &ObjectFile{InputFile: NewInputFile(file)}
	o.IsAlive = isAlive
	return o
}

func (o *ObjectFile) Parse(ctx *Context) {
	o.SymtabSection = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.SymtabSection != nil {
		o.FirstGlobal = int64(o.SymtabSection.Info)
		o.FillUpSymbols(o.SymtabSection)
		o.SymStrTable = o.GetBytesFromIndex(uint64(o.SymtabSection.Link))
	}

	o.initializeSections(ctx)
	o.initializeSymbols(ctx)
	o.initializeMergeableSections(ctx)
}

func (o *ObjectFile) initializeSections(ctx *Context) {
	o.Sections = make([]*InputSection, len(o.InputFile.Sections))
	for i := range o.InputFile.Sections {
		shdr := &o.InputFile.Sections[i]
		switch elf.SectionType(shdr.Type) {
		case elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_REL, elf.SHT_RELA, elf.SHT_NULL, elf.SHT_GROUP:
			continue
		default:
			name := GetNameFromTable(o.StrTable, shdr.Name)
			if name == ".note.GNU-stack" {
				continue
			}
			o.Sections[i] = NewInputSection(ctx, o, uint32(i))
		}
	}

	for i := range o.InputFile.Sections {
		shdr := &o.InputFile.Sections[i]
		if elf.SectionType(shdr.Type) != elf.SHT_REL {
			continue
		}
		if int(shdr.Info) >= len(o.Sections) {
			utils.Fatal("invalid relocated section index")
		}
		if target := o.Sections[shdr.Info]; target != nil {
			target.RelsecIdx = uint32(i)
		}
	}
}

func (o *ObjectFile) initializeSymbols(ctx *Context) {
	if o.SymtabSection == nil {
		return
	}

	o.LocalSymbols = make([]Symbol, o.FirstGlobal)
	for i := range o.LocalSymbols {
		o.LocalSymbols[i] = *NewSymbol("")
	}
	o.LocalSymbols[0].File = o
	o.LocalSymbols[0].SymIdx = 0

	for i := int64(1); i < o.FirstGlobal; i++ {
		esym := &o.SymTable[i]
		name := GetNameFromTable(o.SymStrTable, esym.Name)
		if name == "" && esym.Type() == uint8(elf.STT_SECTION) && int(esym.Shndx) < len(o.Sections) {
			if sec := o.Sections[esym.Shndx]; sec != nil {
				name = sec.Name()
			}
		}

		sym := &o.LocalSymbols[i]
		sym.Name = name
		sym.File = o
		sym.Value = uint64(esym.Value)
		sym.SymIdx = int32(i)
		sym.Binding = BindLocal
		sym.Type = symbolTypeFromElf(esym.Type())

		if esym.Shndx != uint16(elf.SHN_ABS) && esym.Shndx != uint16(elf.SHN_UNDEF) &&
			esym.Shndx != uint16(elf.SHN_COMMON) && int(esym.Shndx) < len(o.Sections) {
			if isec := o.Sections[esym.Shndx]; isec != nil {
				sym.SetInputSection(isec)
			}
		}
	}

	o.Symbols = make([]*Symbol, len(o.SymTable))
	for i := int64(0); i < o.FirstGlobal; i++ {
		o.Symbols[i] = &o.LocalSymbols[i]
	}
	for i := o.FirstGlobal; i < int64(len(o.SymTable)); i++ {
		esym := &o.SymTable[i]
		name := GetNameFromTable(o.SymStrTable, esym.Name)
		o.Symbols[i] = GetSymbolByName(ctx, name)
	}
}

func symbolTypeFromElf(t uint8) SymbolType {
	switch elf.SymType(t) {
	case elf.STT_FUNC:
		return SymFunc
	case elf.STT_OBJECT:
		return SymObject
	case elf.STT_TLS:
		return SymTLS
	default:
		return SymNoType
	}
}

func (o *ObjectFile) initializeMergeableSections(ctx *Context) {
	o.MergeableSections = make([]*MergeableSection, len(o.Sections))
	for i, isec := range o.Sections {
		if isec == nil || !isec.IsAlive {
			continue
		}
		shdr := isec.Shdr()
		if shdr.Flags&uint32(elf.SHF_MERGE) == 0 || shdr.Size == 0 || shdr.Entsize == 0 {
			continue
		}
		o.MergeableSections[i] = splitMergeableSection(ctx, isec)
		isec.IsAlive = false
	}
}

func splitMergeableSection(ctx *Context, isec *InputSection) *MergeableSection {
	shdr := isec.Shdr()
	rec := &MergeableSection{
		Parent:  GetMergedSectionInstance(ctx, isec.Name(), shdr.Flags, shdr.Type),
		P2Align: uint8(isec.P2Align),
	}

	data := isec.Contents
	offset := uint32(0)
	entSize := shdr.Entsize

	if shdr.Flags&uint32(elf.SHF_STRINGS) != 0 {
		for len(data) > 0 {
			end := indexNull(data, int(entSize))
			if end < 0 {
				end = len(data) - int(entSize)
			}
			piece := data[:uint32(end)+entSize]
			data = data[uint32(end)+entSize:]
			rec.Strs = append(rec.Strs, string(piece))
			rec.FragOffsets = append(rec.FragOffsets, offset)
			offset += uint32(end) + entSize
		}
	} else {
		for len(data) >= int(entSize) && entSize > 0 {
			piece := data[:entSize]
			data = data[entSize:]
			rec.Strs = append(rec.Strs, string(piece))
			rec.FragOffsets = append(rec.FragOffsets, offset)
			offset += entSize
		}
	}

	return rec
}

func indexNull(data []byte, entSize int) int {
	for i := 0; i+entSize <= len(data); i += entSize {
		allZero := true
		for _, b := range data[i : i+entSize] {
			if b != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return i
		}
	}
	return -1
}

// ResolveSymbols applies the teacher's rank-based global symbol resolution:
// a stronger definition (earlier archive priority, non-weak, defined)
// displaces a weaker one already recorded under the same name.
func (o *ObjectFile) ResolveSymbols(ctx *Context) {
	for i := o.FirstGlobal; i < int64(len(o.SymTable)); i++ {
		esym := &o.SymTable[i]
		sym := o.Symbols[i]

		if esym.Shndx == uint16(elf.SHN_UNDEF) {
			continue
		}

		var isec *InputSection
		if esym.Shndx != uint16(elf.SHN_ABS) && esym.Shndx != uint16(elf.SHN_COMMON) {
			if int(esym.Shndx) >= len(o.Sections) {
				continue
			}
			isec = o.Sections[esym.Shndx]
			if isec == nil {
				continue
			}
		}

		if symbolRank(o, esym, !o.IsAlive) < symbolRank(sym.File, elfSymOrNil(sym), !isAliveOrFalse(sym.File)) {
			sym.File = o
			sym.SetInputSection(isec)
			sym.Value = uint64(esym.Value)
			sym.SymIdx = int32(i)
			sym.Binding = BindGlobal
			sym.Type = symbolTypeFromElf(esym.Type())
			sym.IsWeak = elf.ST_BIND(esym.Info) == elf.STB_WEAK
			sym.IsExported = false
		}
	}
}

func elfSymOrNil(sym *Symbol) *Sym32 {
	if sym.File == nil || sym.SymIdx < 0 {
		return nil
	}
	return &sym.File.SymTable[sym.SymIdx]
}

func isAliveOrFalse(o *ObjectFile) bool {
	return o != nil && o.IsAlive
}

// symbolRank mirrors the teacher's GetRank: undefined loses to everything,
// then weak loses to strong, then library members lose to regular inputs.
func symbolRank(o *ObjectFile, esym *Sym32, isLazy bool) int64 {
	if esym == nil {
		return math.MaxInt64
	}
	if esym.Shndx == uint16(elf.SHN_UNDEF) {
		return 1 << 4
	}
	if isLazy {
		return 1 << 2
	}
	if elf.ST_BIND(esym.Info) == elf.STB_WEAK {
		return 1 << 1
	}
	return 1 << 0
}

// MarkLiveObjects walks this object's global symbol table, feeding any
// object file that defines a symbol this one still needs back into the
// worklist (archive-member pulling).
func (o *ObjectFile) MarkLiveObjects(ctx *Context, feeder func(*ObjectFile)) {
	utils.Assert(o.IsAlive)

	for i := o.FirstGlobal; i < int64(len(o.SymTable)); i++ {
		esym := &o.SymTable[i]
		sym := o.Symbols[i]

		if elf.ST_BIND(esym.Info) == elf.STB_WEAK {
			continue
		}
		if sym.File == nil {
			continue
		}

		needsIt := esym.Shndx == uint16(elf.SHN_UNDEF)
		if needsIt && !sym.File.IsAlive {
			sym.File.IsAlive = true
			feeder(sym.File)
		}
	}
}

func (o *ObjectFile) ClearSymbols() {
	for i := o.FirstGlobal; i < int64(len(o.Symbols)); i++ {
		if sym := o.Symbols[i]; sym.File == o {
			sym.Clear()
		}
	}
}

// RegisterSectionPieces folds mergeable-section references (both direct
// symbol definitions and relocations pointing into them) down to the
// SectionFragment each resolves to.
func (o *ObjectFile) RegisterSectionPieces() {
	for _, m := range o.MergeableSections {
		if m == nil {
			continue
		}
		m.Fragments = make([]*SectionFragment, 0, len(m.Strs))
		for i := range m.Strs {
			m.Fragments = append(m.Fragments, m.Parent.Insert(m.Strs[i], uint32(m.P2Align)))
		}
	}

	for i := int64(1); i < int64(len(o.SymTable)); i++ {
		esym := &o.SymTable[i]
		if esym.Shndx == uint16(elf.SHN_ABS) || esym.Shndx == uint16(elf.SHN_COMMON) || esym.Shndx == uint16(elf.SHN_UNDEF) {
			continue
		}
		if int(esym.Shndx) >= len(o.MergeableSections) {
			continue
		}
		m := o.MergeableSections[esym.Shndx]
		if m == nil {
			continue
		}
		frag, fragOffset := m.GetFragment(esym.Value)
		if frag == nil {
			utils.Fatal("bad symbol value")
		}
		sym := o.Symbols[i]
		sym.SetSectionFragment(frag)
		sym.Value = uint64(fragOffset)
	}
}

// ClaimUnresolvedSymbols converts any symbol still undefined after
// resolution into a defined-weak-zero symbol if the reference was itself
// weak, matching the teacher-family's handling of `__attribute__((weak))`
// references with no definition anywhere in the link.
func (o *ObjectFile) ClaimUnresolvedSymbols() {
	if !o.IsAlive {
		return
	}

	for i := o.FirstGlobal; i < int64(len(o.SymTable)); i++ {
		esym := &o.SymTable[i]
		if esym.Shndx != uint16(elf.SHN_UNDEF) {
			continue
		}

		sym := o.Symbols[i]
		if sym.File != nil && sym.IsDefine() {
			continue
		}

		if elf.ST_BIND(esym.Info) == elf.STB_WEAK {
			sym.File = o
			sym.InputSection = nil
			sym.OutputSection = nil
			sym.SectionFragment = nil
			sym.Value = 0
			sym.SymIdx = int32(i)
			sym.IsWeak = false
		}
	}
}

func (o *ObjectFile) ScanRelocations(ctx *Context) {
	for _, isec := range o.Sections {
		if isec == nil || !isec.IsAlive {
			continue
		}
		if isec.Shdr().Flags&uint32(elf.SHF_ALLOC) == 0 {
			continue
		}
		isec.ScanRelocations(ctx)
	}
}
