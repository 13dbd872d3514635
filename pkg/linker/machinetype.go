package linker

import (
	"debug/elf"

	"armld/pkg/utils"
)

// EF_ARM_EABIMASK mirrors the ARM e_flags EABI-version field debug/elf
// doesn't expose (it has no ARM-specific flag constants).
const (
	EF_ARM_EABIMASK = 0xff000000
)

type MachineType = uint8

const (
	MachineTypeNone MachineType = iota
	MachineTypeARM
)

// GetMachineTypeFromContext inspects an object's e_machine field. Both the
// ARM and Thumb instruction-set states share the same EM_ARM machine type
// and the same target ID here: whether a given input section is ARM or
// Thumb code is a per-symbol property (decided from the symbol's low bit),
// not a per-file one.
func GetMachineTypeFromContext(contents []byte) MachineType {
	ft := GetFileType(contents)

	switch ft {
	case FileTypeObject:
		machine := elf.Machine(utils.Read[uint16](contents[18:]))
		if machine == elf.EM_ARM {
			class := elf.Class(contents[4])
			if class == elf.ELFCLASS32 {
				return MachineTypeARM
			}
		}
	}

	return MachineTypeNone
}

type MachineTypeStringer struct {
	MachineType
}

func (m MachineTypeStringer) String() string {
	switch m.MachineType {
	case MachineTypeARM:
		return "arm"
	}

	utils.Assert(m.MachineType == MachineTypeNone)
	return ""
}
