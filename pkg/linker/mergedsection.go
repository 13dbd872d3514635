package linker

import (
	"armld/pkg/utils"
	"debug/elf"
	"sort"
	"strings"
)

// MergedSection is an output section built by folding together the
// mergeable pieces (e.g. de-duplicated string-literal fragments) of many
// input sections. Grounded on PiNengShaoNian-rvld's mergedsection.go.
type MergedSection struct {
	Chunk
	Map map[string]*SectionFragment
}

func NewMergedSection(name string, flags, typ uint32) *MergedSection {
	m := &MergedSection{
		Chunk: NewChunk(),
		Map:   make(map[string]*SectionFragment),
	}
	m.Name = name
	m.Shdr.Flags = flags
	m.Shdr.Type = typ
	return m
}

func (m *MergedSection) Insert(key string, p2align uint32) *SectionFragment {
	if frag, ok := m.Map[key]; ok {
		if frag.P2Align < p2align {
			frag.P2Align = p2align
		}
		return frag
	}
	frag := NewSectionFragment(m)
	frag.P2Align = p2align
	m.Map[key] = frag
	return frag
}

func (m *MergedSection) AssignOffsets() {
	type entry struct {
		key string
		val *SectionFragment
	}
	fragments := make([]entry, 0, len(m.Map))
	for key, val := range m.Map {
		fragments = append(fragments, entry{key, val})
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		x, y := fragments[i], fragments[j]
		if x.val.P2Align != y.val.P2Align {
			return x.val.P2Align < y.val.P2Align
		}
		if len(x.key) != len(y.key) {
			return len(x.key) < len(y.key)
		}
		return x.key < y.key
	})

	offset := uint64(0)
	p2align := uint32(0)
	for _, frag := range fragments {
		offset = utils.AlignTo(offset, 1<<frag.val.P2Align)
		frag.val.Offset = uint32(offset)
		offset += uint64(len(frag.key))
		if p2align < frag.val.P2Align {
			p2align = frag.val.P2Align
		}
	}

	m.Shdr.Size = uint32(utils.AlignTo(offset, 1<<p2align))
	m.Shdr.Addralign = 1 << p2align
}

// GetMergedSectionInstance returns the MergedSection an input section's
// mergeable pieces should fold into, creating one on first use. Output
// section flags drop SHF_MERGE/SHF_STRINGS/SHF_GROUP: once folded, a
// MergedSection is a plain allocated section like any other.
func GetMergedSectionInstance(ctx *Context, name string, flags, typ uint32) *MergedSection {
	flags &^= uint32(elf.SHF_MERGE) | uint32(elf.SHF_STRINGS) | uint32(elf.SHF_GROUP) | uint32(elf.SHF_COMPRESSED)
	name = canonicalMergedSectionName(name, typ)

	for _, m := range ctx.MergedSections {
		if m.Name == name && m.Shdr.Flags == flags && m.Shdr.Type == typ {
			return m
		}
	}

	m := NewMergedSection(name, flags, typ)
	ctx.MergedSections = append(ctx.MergedSections, m)
	return m
}

// canonicalMergedSectionName folds .rodata.str1.1, .rodata.cst4, etc. down
// to their un-numbered output-section name, mirroring the generic
// GNU ld / teacher-family section-name canonicalization rule.
func canonicalMergedSectionName(name string, typ uint32) string {
	for _, prefix := range []string{".rodata.str", ".rodata.cst", ".rodata."} {
		if strings.HasPrefix(name, prefix) {
			return ".rodata"
		}
	}
	return name
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[m.Shdr.Offset:]
	for key, frag := range m.Map {
		copy(buf[frag.Offset:], key)
	}
}
