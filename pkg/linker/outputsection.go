package linker

import "debug/elf"

// OutputSection is the output-side counterpart of every input section
// sharing one merged name/type/flags triple. Grounded on unicornx-rvld's
// outputsection.go.
type OutputSection struct {
	Chunk
	Members []*InputSection
	Idx     uint32
}

func NewOutputSection(name string, typ, flags uint32, idx uint32) *OutputSection {
	o := &OutputSection{Chunk: NewChunk()}
	o.Name = name
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	o.Idx = idx
	return o
}

func (o *OutputSection) CopyBuf(ctx *Context) {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return
	}

	base := ctx.Buf[o.Shdr.Offset:]
	for _, isec := range o.Members {
		isec.WriteTo(ctx, base[isec.Offset:])
	}
}

func GetOutputSection(ctx *Context, name string, typ, flags uint32) *OutputSection {
	name = GetOutputName(name, flags)
	flags = flags &^ uint32(elf.SHF_GROUP) &^ uint32(elf.SHF_COMPRESSED) &^ uint32(elf.SHF_LINK_ORDER)

	for _, osec := range ctx.OutputSections {
		if name == osec.Name && typ == osec.Shdr.Type && flags == osec.Shdr.Flags {
			return osec
		}
	}

	osec := NewOutputSection(name, typ, flags, uint32(len(ctx.OutputSections)))
	ctx.OutputSections = append(ctx.OutputSections, osec)
	return osec
}
