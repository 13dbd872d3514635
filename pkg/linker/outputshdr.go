package linker

import "armld/pkg/utils"

type OutputShdr struct {
	Chunk
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{
		Chunk: NewChunk(),
	}
	o.Shdr.Addralign = 4
	return o
}

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	n := int32(0)
	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			n = chunk.GetShndx()
		}
	}

	o.Shdr.Size = uint32(n+1) * uint32(SectionHeaderSize)
}

func (o *OutputShdr) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	utils.Write[SectionHeader](base, SectionHeader{})

	for _, chunk := range ctx.Chunks {
		if chunk.GetShndx() > 0 {
			utils.Write[SectionHeader](base[int64(chunk.GetShndx())*int64(SectionHeaderSize):], *chunk.GetShdr())
		}
	}
}
