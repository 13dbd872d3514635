package linker

import (
	"strconv"
	"strings"

	"armld/pkg/utils"
)

// ArHeadher is the 60-byte common archive member header (ar(5)). The
// teacher's archive.go references this type and ArHeaderSize without ever
// defining them in its snapshot; grounded on the sibling forks' archive
// readers, which parse the same fixed-width ASCII header fields.
type ArHeadher struct {
	Name     [16]byte
	Date     [12]byte
	UID      [6]byte
	GID      [6]byte
	Mode     [8]byte
	SizeAscii [10]byte
	Fmag     [2]byte
}

const ArHeaderSize = 60

func (h *ArHeadher) GetSize() int {
	s := strings.TrimSpace(string(h.SizeAscii[:]))
	n, err := strconv.Atoi(s)
	utils.MustNo(err)
	return n
}

func (h *ArHeadher) IsSymtab() bool {
	return h.Name[0] == '/' && h.Name[1] == ' '
}

func (h *ArHeadher) IsStrtab() bool {
	return h.Name[0] == '/' && h.Name[1] == '/'
}

// ReadName resolves a member name, following the GNU "/<offset>" extended
// name indirection into the archive string table when the name itself
// doesn't fit the 16-byte field.
func (h *ArHeadher) ReadName(strTab []byte) string {
	if h.Name[0] == '/' && h.Name[1] >= '0' && h.Name[1] <= '9' {
		digits := strings.TrimRight(string(h.Name[1:]), " ")
		offset, err := strconv.Atoi(digits)
		utils.MustNo(err)
		return GetNameFromTable(strTab, uint32(offset))
	}

	name := strings.TrimRight(string(h.Name[:]), " ")
	return strings.TrimSuffix(name, "/")
}

func ReadArchiveMembers(file *File) []*File {
	utils.Assert(GetFileType(file.Contents) == FileTypeArchive)

	// skip 8 bytes "!<arch>\n"
	pos := 8

	var strTab []byte
	var files []*File
	for len(file.Contents)-pos > 1 {
		if pos%2 == 1 {
			pos++
		}

		hdr := utils.Read[ArHeadher](file.Contents[pos:])
		dataStart := pos + ArHeaderSize
		pos = dataStart + hdr.GetSize()
		dataEnd := pos
		contents := file.Contents[dataStart:dataEnd]

		if hdr.IsSymtab() {
			continue
		} else if hdr.IsStrtab() {
			strTab = contents
			continue
		}

		files = append(files, &File{
			Name:     hdr.ReadName(strTab),
			Contents: contents,
			Parent:   file,
		})
	}

	return files
}
