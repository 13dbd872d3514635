package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"armld/pkg/utils"
)

// EF_ARM_EABI_VER5 is the EABI version this repository always emits,
// matching the distilled spec's "hard-coded rewrites only" stance: no
// --target1-rel/--target2 switches, no per-input EABI version merging.
const EF_ARM_EABI_VER5 = 5 << 24

type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	return &OutputEhdr{
		Chunk{
			Shdr: SectionHeader{
				Flags:     uint32(elf.SHF_ALLOC),
				Size:      uint32(ELFHeaderSize),
				Addralign: 4,
			},
		},
	}
}

func (o *OutputEhdr) CopyBuf(ctx *Context) {
	ehdr := &Header32{}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS32)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)
	ehdr.Ident[elf.EI_OSABI] = 0
	ehdr.Ident[elf.EI_ABIVERSION] = 0

	if ctx.Config.Type == CodeGenDynObj {
		ehdr.Type = uint16(elf.ET_DYN)
	} else {
		ehdr.Type = uint16(elf.ET_EXEC)
	}
	ehdr.Machine = uint16(elf.EM_ARM)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = uint32(GetEntryAddress(ctx))
	ehdr.Flags = EF_ARM_EABI_VER5
	ehdr.Phoff = ctx.Phdr.Shdr.Offset
	ehdr.Shoff = ctx.Shdr.Shdr.Offset
	ehdr.Ehsize = uint16(ELFHeaderSize)
	ehdr.Phentsize = uint16(ProgramHeaderSize)
	ehdr.Phnum = uint16(ctx.Phdr.Shdr.Size) / uint16(ProgramHeaderSize)
	ehdr.Shentsize = uint16(SectionHeaderSize)
	ehdr.Shnum = uint16(ctx.Shdr.Shdr.Size) / uint16(SectionHeaderSize)

	buf := &bytes.Buffer{}
	err := binary.Write(buf, binary.LittleEndian, ehdr)
	utils.MustNo(err)
	copy(ctx.Buf[o.Shdr.Offset:], buf.Bytes())
}

func GetEntryAddress(ctx *Context) uint64 {
	for _, osec := range ctx.OutputSections {
		if osec.Name == ".text" {
			return uint64(osec.Shdr.Addr)
		}
	}
	return 0
}
