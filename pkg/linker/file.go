package linker

import (
	"armld/pkg/utils"
	"bytes"
	"debug/elf"
)

// File holds the raw bytes of an input object or archive member. Archive
// members share the Parent archive's backing storage; Name is used only
// for diagnostics.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

func MustNewFile(name string) *File {
	contents, err := mmapOrRead(name)
	utils.MustNo(err)
	return &File{Name: name, Contents: contents}
}

// mmapOrRead is implemented per-platform (file_unix.go, file_other.go). On
// platforms with golang.org/x/sys/unix support it maps the file read-only
// instead of copying it into a freshly allocated slice, since inputs to a
// linker can be large archives and the backend only ever reads them.
var mmapOrRead = mmapFile

type FileType = uint8

const (
	FileTypeUnknown FileType = iota
	FileTypeObject
	FileTypeArchive
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

func CheckMagic(contents []byte) bool {
	return len(contents) >= 4 && bytes.Equal(contents[:4], elfMagic)
}

func WriteMagic(dst []byte) {
	copy(dst, elfMagic)
}

var arMagic = []byte("!<arch>\n")

func GetFileType(contents []byte) FileType {
	if CheckMagic(contents) {
		if len(contents) < int(ELFHeaderSize) {
			return FileTypeUnknown
		}
		// Only relocatable objects are accepted as inputs; anything else
		// (executables, shared objects, core files) cannot appear on an
		// input line to a static/dynamic linker.
		typ := elf.Type(utils.Read[uint16](contents[16:]))
		if typ == elf.ET_REL {
			return FileTypeObject
		}
		return FileTypeUnknown
	}
	if len(contents) >= len(arMagic) && bytes.Equal(contents[:len(arMagic)], arMagic) {
		return FileTypeArchive
	}
	return FileTypeUnknown
}
