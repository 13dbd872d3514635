package linker

import (
	"armld/pkg/utils"
	"bytes"
	"fmt"
	"unsafe"
)

// 32-bit ELF structures. The teacher (rvld) targets 64-bit RISC-V and
// hand-rolls Header64/SectionHeader/Sym64 directly over debug/elf's
// constants rather than using debug/elf's own Header64/Section64/Sym64 —
// this repository follows the same "read the bytes ourselves" style,
// widened to the 32-bit layout ARM/Thumb requires.

type Header32 struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

type SectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint32
	Addr      uint32
	Offset    uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

type Sym32 struct {
	Name  uint32
	Value uint32
	Size  uint32
	Info  uint8
	Other uint8
	Shndx uint16
}

func (s *Sym32) Bind() uint8 { return s.Info >> 4 }
func (s *Sym32) Type() uint8 { return s.Info & 0xf }

// Rel32 is the ARM ABI's REL relocation entry (no explicit addend field;
// the addend lives in the bytes being patched and is refreshed by the
// scanner from there before classification, per spec §4.2).
type Rel32 struct {
	Offset uint32
	Info   uint32
}

func (r *Rel32) Sym() uint32  { return r.Info >> 8 }
func (r *Rel32) Type() uint32 { return r.Info & 0xff }

func NewRel32(offset uint32, sym uint32, typ uint32) Rel32 {
	return Rel32{Offset: offset, Info: sym<<8 | (typ & 0xff)}
}

type ProgramHeader struct {
	Type     uint32
	Offset   uint32
	VAddr    uint32
	PAddr    uint32
	FileSize uint32
	MemSize  uint32
	Flags    uint32
	Align    uint32
}

const ELFHeaderSize = unsafe.Sizeof(Header32{})
const SectionHeaderSize = unsafe.Sizeof(SectionHeader{})
const SymbolSize = unsafe.Sizeof(Sym32{})
const RelSize = unsafe.Sizeof(Rel32{})
const ProgramHeaderSize = unsafe.Sizeof(ProgramHeader{})

type InputFile struct {
	File        *File
	Sections    []SectionHeader
	FirstGlobal int64
	SymTable    []Sym32
	SymStrTable []byte
	StrTable    []byte
}

func NewInputFile(file *File) InputFile {
	elfFile := InputFile{File: file}

	if len(file.Contents) < int(ELFHeaderSize) {
		utils.Fatal("ELF file too small!")
	}

	if !CheckMagic(file.Contents) {
		utils.Fatal("Not an ELF file!")
	}

	elfHeader := utils.Read[Header32](file.Contents)

	contents := file.Contents[elfHeader.Shoff:]

	sectionHeader := utils.Read[SectionHeader](contents)
	sectionNumber := uint64(elfHeader.Shnum)

	if sectionNumber == 0 {
		sectionNumber = uint64(sectionHeader.Size)
	}

	elfFile.Sections = []SectionHeader{sectionHeader}

	for sectionNumber > 1 {
		contents = contents[SectionHeaderSize:]
		elfFile.Sections = append(elfFile.Sections, utils.Read[SectionHeader](contents))
		sectionNumber--
	}

	shstrndx := uint64(elfHeader.Shstrndx)
	// SHN_XINDEX
	if shstrndx == 0xffff {
		shstrndx = uint64(sectionHeader.Link)
	}

	elfFile.StrTable = elfFile.GetBytesFromIndex(shstrndx)

	return elfFile
}

func (file *InputFile) GetEhdr() Header32 {
	return utils.Read[Header32](file.File.Contents)
}

func (file *InputFile) GetBytesFromShdr(hdr *SectionHeader) []byte {
	start := hdr.Offset
	end := hdr.Offset + hdr.Size
	if uint64(len(file.File.Contents)) < uint64(end) {
		utils.Fatal(
			fmt.Sprintf("Section header is out of range: %d", hdr.Offset),
		)
	}
	return file.File.Contents[start:end]
}

func (file *InputFile) GetBytesFromIndex(idx uint64) []byte {
	return file.GetBytesFromShdr(&file.Sections[idx])
}

func GetNameFromTable(strTable []byte, offset uint32) string {
	if int(offset) >= len(strTable) {
		return ""
	}
	length := bytes.IndexByte(strTable[offset:], 0)
	if length < 0 {
		length = len(strTable) - int(offset)
	}
	return string(strTable[offset : int(offset)+length])
}

func (file *InputFile) FindSection(type_ uint32) *SectionHeader {
	for i := 0; i < len(file.Sections); i++ {
		shdr := &file.Sections[i]
		if shdr.Type == type_ {
			return shdr
		}
	}

	return nil
}

func (file *InputFile) FillUpSymbols(s *SectionHeader) {
	symContents := file.GetBytesFromShdr(s)
	symNumber := len(symContents) / int(SymbolSize)

	file.SymTable = make([]Sym32, 0, symNumber)

	for symNumber > 0 {
		file.SymTable = append(file.SymTable, utils.Read[Sym32](symContents))
		symContents = symContents[SymbolSize:]
		symNumber--
	}
}

func (file *InputFile) GetRelsFor(s *SectionHeader) []Rel32 {
	contents := file.GetBytesFromShdr(s)
	n := len(contents) / int(RelSize)
	rels := make([]Rel32, 0, n)
	for n > 0 {
		rels = append(rels, utils.Read[Rel32](contents))
		contents = contents[RelSize:]
		n--
	}
	return rels
}
