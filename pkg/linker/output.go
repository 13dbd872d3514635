package linker

import (
	"debug/elf"
	"strings"
)

// PageSize is the minimum alignment granularity for PT_LOAD segments.
const PageSize = 4096

// ImageBase is the default load address for a static ARM executable.
const ImageBase = 0x10000

var sectionNamePrefixes = []string{
	".text.", ".data.rel.ro.", ".data.", ".rodata.", ".bss.rel.ro.", ".bss.",
	".init_array.", ".fini_array.", ".tbss.", ".tdata.", ".gcc_except_table.",
	".ctors.", ".dtors.",
}

// GetOutputName folds per-translation-unit section names (".text.foo",
// ".data.rel.ro.bar") down to the shared output section they merge into.
// Grounded on unicornx-rvld's output.go.
func GetOutputName(name string, flags uint32) string {
	if (name == ".rodata" || strings.HasPrefix(name, ".rodata.")) &&
		flags&uint32(elf.SHF_MERGE) != 0 {
		if flags&uint32(elf.SHF_STRINGS) != 0 {
			return ".rodata.str"
		}
		return ".rodata.cst"
	}

	for _, prefix := range sectionNamePrefixes {
		stem := prefix[:len(prefix)-1]
		if name == stem || strings.HasPrefix(name, prefix) {
			return stem
		}
	}

	return name
}

func isTbss(chunk Chunker) bool {
	shdr := chunk.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) && shdr.Flags&uint32(elf.SHF_TLS) != 0
}
