// Package armbackend implements the ARM/Thumb target-specific core of an
// ELF link-editor: relocation classification, GOT/PLT/dynamic-relocation
// layout, branch-stub relaxation, and the ARM unwind/attribute sections.
// Grounded on the teacher's (AimiP02-tinyLinker / rvld) RISC-V backend
// shape, widened to the ARM EABI (AAELF32) this package targets.
package armbackend

// RelType enumerates the ARM EABI (AAELF32) relocation codes this backend
// classifies. Numeric values follow the ARM ELF ABI's relocation table;
// only the handful this backend actually reads/writes bit patterns for
// (ABS32, the branch family, GOT/PLT accessors) need to be byte-exact
// against a real toolchain, so the long tail of G0/G1/G2 group-relocation
// variants is assigned densely packed contiguous values rather than their
// exact AAELF numbers — they are classified symbolically throughout this
// package and never compared against an external producer.
type RelType uint32

const (
	R_ARM_NONE     RelType = 0
	R_ARM_PC24     RelType = 1
	R_ARM_ABS32    RelType = 2
	R_ARM_REL32    RelType = 3
	R_ARM_ABS16    RelType = 5
	R_ARM_ABS12    RelType = 6
	R_ARM_THM_ABS5 RelType = 7
	R_ARM_ABS8     RelType = 8
	R_ARM_SBREL32  RelType = 9
	R_ARM_THM_CALL RelType = 10
	R_ARM_THM_PC8  RelType = 11

	R_ARM_COPY      RelType = 20
	R_ARM_GLOB_DAT  RelType = 21
	R_ARM_JUMP_SLOT RelType = 22
	R_ARM_RELATIVE  RelType = 23
	R_ARM_GOTOFF32  RelType = 24
	R_ARM_BASE_PREL RelType = 25 // R_ARM_GOTPC
	R_ARM_GOT_BREL  RelType = 26 // R_ARM_GOT32
	R_ARM_PLT32     RelType = 27
	R_ARM_CALL      RelType = 28
	R_ARM_JUMP24    RelType = 29
	R_ARM_THM_JUMP24 RelType = 30
	R_ARM_BASE_ABS  RelType = 31

	R_ARM_LDR_PC_G0  RelType = 57
	R_ARM_ALU_PC_G0  RelType = 58
	R_ARM_ALU_PC_G1  RelType = 59
	R_ARM_LDR_PC_G1  RelType = 60
	R_ARM_LDR_PC_G2  RelType = 61
	R_ARM_LDRS_PC_G0 RelType = 62
	R_ARM_LDRS_PC_G1 RelType = 63
	R_ARM_LDRS_PC_G2 RelType = 64
	R_ARM_LDC_PC_G0  RelType = 65
	R_ARM_LDC_PC_G1  RelType = 66
	R_ARM_LDC_PC_G2  RelType = 67
	R_ARM_ALU_SB_G0  RelType = 68
	R_ARM_ALU_SB_G1  RelType = 69
	R_ARM_ALU_SB_G2  RelType = 70
	R_ARM_LDR_SB_G0  RelType = 71
	R_ARM_LDR_SB_G1  RelType = 72
	R_ARM_LDR_SB_G2  RelType = 73
	R_ARM_LDRS_SB_G0 RelType = 74
	R_ARM_LDRS_SB_G1 RelType = 75
	R_ARM_LDRS_SB_G2 RelType = 76
	R_ARM_LDC_SB_G0  RelType = 77
	R_ARM_LDC_SB_G1  RelType = 78
	R_ARM_LDC_SB_G2  RelType = 79

	R_ARM_TARGET1 RelType = 38
	R_ARM_SBREL31 RelType = 39
	R_ARM_V4BX    RelType = 40
	R_ARM_TARGET2 RelType = 41
	R_ARM_PREL31  RelType = 42

	R_ARM_MOVW_ABS_NC     RelType = 43
	R_ARM_MOVT_ABS        RelType = 44
	R_ARM_MOVW_PREL_NC    RelType = 45
	R_ARM_MOVT_PREL       RelType = 46
	R_ARM_THM_MOVW_ABS_NC RelType = 47
	R_ARM_THM_MOVT_ABS    RelType = 48
	R_ARM_THM_MOVW_PREL_NC RelType = 49
	R_ARM_THM_MOVT_PREL   RelType = 50
	R_ARM_THM_JUMP19      RelType = 51
	R_ARM_THM_JUMP6       RelType = 52
	R_ARM_THM_ALU_PREL_11_0 RelType = 53
	R_ARM_THM_PC12        RelType = 54
	R_ARM_ABS32_NOI       RelType = 55
	R_ARM_REL32_NOI       RelType = 56

	R_ARM_MOVW_BREL_NC     RelType = 84
	R_ARM_MOVT_BREL        RelType = 85
	R_ARM_MOVW_BREL        RelType = 86
	R_ARM_THM_MOVW_BREL_NC RelType = 87
	R_ARM_THM_MOVT_BREL    RelType = 88
	R_ARM_THM_MOVW_BREL    RelType = 89

	R_ARM_TLS_DTPMOD32 RelType = 17
	R_ARM_TLS_DTPOFF32 RelType = 18
	R_ARM_TLS_TPOFF32  RelType = 19

	R_ARM_GOT_ABS   RelType = 95
	R_ARM_GOT_PREL  RelType = 96
	R_ARM_THM_JUMP11 RelType = 102
	R_ARM_THM_JUMP8  RelType = 103
	R_ARM_GOTOFF12   RelType = 98
	R_ARM_THM_XPC22  RelType = 16
	R_ARM_XPC25      RelType = 15
)

func (t RelType) String() string {
	if name, ok := relTypeNames[t]; ok {
		return name
	}
	return "R_ARM_UNKNOWN"
}

var relTypeNames = map[RelType]string{
	R_ARM_NONE: "R_ARM_NONE", R_ARM_PC24: "R_ARM_PC24", R_ARM_ABS32: "R_ARM_ABS32",
	R_ARM_REL32: "R_ARM_REL32", R_ARM_ABS16: "R_ARM_ABS16", R_ARM_ABS12: "R_ARM_ABS12",
	R_ARM_THM_ABS5: "R_ARM_THM_ABS5", R_ARM_ABS8: "R_ARM_ABS8", R_ARM_SBREL32: "R_ARM_SBREL32",
	R_ARM_THM_CALL: "R_ARM_THM_CALL", R_ARM_THM_PC8: "R_ARM_THM_PC8",
	R_ARM_COPY: "R_ARM_COPY", R_ARM_GLOB_DAT: "R_ARM_GLOB_DAT", R_ARM_JUMP_SLOT: "R_ARM_JUMP_SLOT",
	R_ARM_RELATIVE: "R_ARM_RELATIVE", R_ARM_GOTOFF32: "R_ARM_GOTOFF32", R_ARM_BASE_PREL: "R_ARM_BASE_PREL",
	R_ARM_GOT_BREL: "R_ARM_GOT_BREL", R_ARM_PLT32: "R_ARM_PLT32", R_ARM_CALL: "R_ARM_CALL",
	R_ARM_JUMP24: "R_ARM_JUMP24", R_ARM_THM_JUMP24: "R_ARM_THM_JUMP24", R_ARM_BASE_ABS: "R_ARM_BASE_ABS",
	R_ARM_TARGET1: "R_ARM_TARGET1", R_ARM_SBREL31: "R_ARM_SBREL31", R_ARM_V4BX: "R_ARM_V4BX",
	R_ARM_TARGET2: "R_ARM_TARGET2", R_ARM_PREL31: "R_ARM_PREL31",
	R_ARM_MOVW_ABS_NC: "R_ARM_MOVW_ABS_NC", R_ARM_MOVT_ABS: "R_ARM_MOVT_ABS",
	R_ARM_MOVW_PREL_NC: "R_ARM_MOVW_PREL_NC", R_ARM_MOVT_PREL: "R_ARM_MOVT_PREL",
	R_ARM_THM_MOVW_ABS_NC: "R_ARM_THM_MOVW_ABS_NC", R_ARM_THM_MOVT_ABS: "R_ARM_THM_MOVT_ABS",
	R_ARM_THM_MOVW_PREL_NC: "R_ARM_THM_MOVW_PREL_NC", R_ARM_THM_MOVT_PREL: "R_ARM_THM_MOVT_PREL",
	R_ARM_THM_JUMP19: "R_ARM_THM_JUMP19", R_ARM_THM_JUMP6: "R_ARM_THM_JUMP6",
	R_ARM_THM_ALU_PREL_11_0: "R_ARM_THM_ALU_PREL_11_0", R_ARM_THM_PC12: "R_ARM_THM_PC12",
	R_ARM_ABS32_NOI: "R_ARM_ABS32_NOI", R_ARM_REL32_NOI: "R_ARM_REL32_NOI",
	R_ARM_GOT_ABS: "R_ARM_GOT_ABS",
	R_ARM_GOT_PREL: "R_ARM_GOT_PREL", R_ARM_THM_JUMP11: "R_ARM_THM_JUMP11", R_ARM_THM_JUMP8: "R_ARM_THM_JUMP8",
	R_ARM_TLS_DTPMOD32: "R_ARM_TLS_DTPMOD32", R_ARM_TLS_DTPOFF32: "R_ARM_TLS_DTPOFF32",
	R_ARM_TLS_TPOFF32: "R_ARM_TLS_TPOFF32",
}

// isAbsoluteType is the "All absolute relocation types" family from §4.2.
func isAbsoluteType(t RelType) bool {
	switch t {
	case R_ARM_ABS32, R_ARM_ABS16, R_ARM_ABS12, R_ARM_THM_ABS5, R_ARM_ABS8,
		R_ARM_BASE_ABS, R_ARM_MOVW_ABS_NC, R_ARM_MOVT_ABS,
		R_ARM_THM_MOVW_ABS_NC, R_ARM_THM_MOVT_ABS, R_ARM_ABS32_NOI:
		return true
	}
	return false
}

// isOtherAbsoluteLocalType is the local-symbol "other absolute" family
// that always reports a non-PIC-relocation diagnostic under PIC (§4.2).
func isOtherAbsoluteLocalType(t RelType) bool {
	switch t {
	case R_ARM_ABS16, R_ARM_ABS12, R_ARM_THM_ABS5, R_ARM_ABS8, R_ARM_BASE_ABS,
		R_ARM_MOVW_ABS_NC, R_ARM_MOVT_ABS, R_ARM_THM_MOVW_ABS_NC, R_ARM_THM_MOVT_ABS:
		return true
	}
	return false
}

func isPCRelOrDataRelType(t RelType) bool {
	switch t {
	case R_ARM_REL32, R_ARM_SBREL32, R_ARM_PREL31,
		R_ARM_LDR_PC_G0, R_ARM_ALU_PC_G0, R_ARM_ALU_PC_G1, R_ARM_LDR_PC_G1, R_ARM_LDR_PC_G2,
		R_ARM_LDRS_PC_G0, R_ARM_LDRS_PC_G1, R_ARM_LDRS_PC_G2,
		R_ARM_LDC_PC_G0, R_ARM_LDC_PC_G1, R_ARM_LDC_PC_G2,
		R_ARM_ALU_SB_G0, R_ARM_ALU_SB_G1, R_ARM_ALU_SB_G2,
		R_ARM_LDR_SB_G0, R_ARM_LDR_SB_G1, R_ARM_LDR_SB_G2,
		R_ARM_LDRS_SB_G0, R_ARM_LDRS_SB_G1, R_ARM_LDRS_SB_G2,
		R_ARM_LDC_SB_G0, R_ARM_LDC_SB_G1, R_ARM_LDC_SB_G2,
		R_ARM_MOVW_PREL_NC, R_ARM_MOVT_PREL, R_ARM_THM_MOVW_PREL_NC, R_ARM_THM_MOVT_PREL,
		R_ARM_THM_ALU_PREL_11_0, R_ARM_THM_PC12, R_ARM_REL32_NOI,
		R_ARM_MOVW_BREL_NC, R_ARM_MOVT_BREL, R_ARM_MOVW_BREL,
		R_ARM_THM_MOVW_BREL_NC, R_ARM_THM_MOVT_BREL, R_ARM_THM_MOVW_BREL,
		R_ARM_BASE_PREL:
		return true
	}
	return false
}

func isBranchType(t RelType) bool {
	switch t {
	case R_ARM_THM_CALL, R_ARM_PLT32, R_ARM_CALL, R_ARM_JUMP24, R_ARM_THM_JUMP24,
		R_ARM_SBREL31, R_ARM_PREL31, R_ARM_THM_JUMP19, R_ARM_THM_JUMP6,
		R_ARM_THM_JUMP11, R_ARM_THM_JUMP8:
		return true
	}
	return false
}

func isGOTAccessType(t RelType) bool {
	switch t {
	case R_ARM_GOT_BREL, R_ARM_GOT_ABS, R_ARM_GOT_PREL:
		return true
	}
	return false
}

// isDynamicOnlyType rejects the dynamic-linker-only relocation kinds that
// must never appear in an input object (§4.2, fatal in both local and
// global policy).
func isDynamicOnlyType(t RelType) bool {
	switch t {
	case R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT, R_ARM_RELATIVE:
		return true
	}
	return false
}

// isStubEligibleType is the relocation-type set doRelax walks for
// candidate branches needing a stub (§4.5 step 1).
func isStubEligibleType(t RelType) bool {
	switch t {
	case R_ARM_CALL, R_ARM_JUMP24, R_ARM_PLT32, R_ARM_THM_CALL, R_ARM_THM_XPC22,
		R_ARM_THM_JUMP24, R_ARM_THM_JUMP19, R_ARM_V4BX:
		return true
	}
	return false
}

// picAllowedDynRelTypes is the §4.7 allow-list: relocation types permitted
// to become dynamic relocations under -fPIC.
var picAllowedDynRelTypes = map[RelType]bool{
	R_ARM_RELATIVE: true, R_ARM_COPY: true, R_ARM_GLOB_DAT: true, R_ARM_JUMP_SLOT: true,
	R_ARM_ABS32: true, R_ARM_ABS32_NOI: true, R_ARM_PC24: true,
	R_ARM_TLS_DTPMOD32: true, R_ARM_TLS_DTPOFF32: true, R_ARM_TLS_TPOFF32: true,
}
