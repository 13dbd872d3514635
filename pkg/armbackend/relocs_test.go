package armbackend

import "testing"

func TestNormalizeTypeRewritesTargetAliases(t *testing.T) {
	if got := normalizeType(R_ARM_TARGET1); got != R_ARM_ABS32 {
		t.Fatalf("TARGET1 normalized to %v, want R_ARM_ABS32", got)
	}
	if got := normalizeType(R_ARM_TARGET2); got != R_ARM_GOT_PREL {
		t.Fatalf("TARGET2 normalized to %v, want R_ARM_GOT_PREL", got)
	}
	if got := normalizeType(R_ARM_ABS32); got != R_ARM_ABS32 {
		t.Fatalf("non-alias type must pass through unchanged, got %v", got)
	}
}

func TestNoTargetAliasSurvivesClassification(t *testing.T) {
	// Testable property 3: TARGET1/TARGET2 never reach the classification
	// helpers directly, since scanning always normalizes first.
	for _, typ := range []RelType{R_ARM_TARGET1, R_ARM_TARGET2} {
		norm := normalizeType(typ)
		if norm == R_ARM_TARGET1 || norm == R_ARM_TARGET2 {
			t.Fatalf("normalizeType(%v) = %v, still a target alias", typ, norm)
		}
	}
}

func TestClassificationFamiliesAreDisjointForNamedCases(t *testing.T) {
	cases := []struct {
		typ                                                     RelType
		absolute, pcrel, branch, gotAccess, dynOnly, stubEligible bool
	}{
		{R_ARM_ABS32, true, false, false, false, false, false},
		{R_ARM_REL32, false, true, false, false, false, false},
		{R_ARM_CALL, false, false, true, false, false, true},
		{R_ARM_GOT_BREL, false, false, false, true, false, false},
		{R_ARM_GOT_ABS, false, false, false, true, false, false},
		{R_ARM_GOT_PREL, false, false, false, true, false, false},
		{R_ARM_COPY, false, false, false, false, true, false},
		{R_ARM_THM_CALL, false, false, true, false, false, true},
		{R_ARM_THM_XPC22, false, false, false, false, false, true},
		{R_ARM_BASE_PREL, false, true, false, false, false, false},
	}

	for _, c := range cases {
		if got := isAbsoluteType(c.typ); got != c.absolute {
			t.Errorf("%v: isAbsoluteType = %v, want %v", c.typ, got, c.absolute)
		}
		if got := isPCRelOrDataRelType(c.typ); got != c.pcrel {
			t.Errorf("%v: isPCRelOrDataRelType = %v, want %v", c.typ, got, c.pcrel)
		}
		if got := isBranchType(c.typ); got != c.branch {
			t.Errorf("%v: isBranchType = %v, want %v", c.typ, got, c.branch)
		}
		if got := isGOTAccessType(c.typ); got != c.gotAccess {
			t.Errorf("%v: isGOTAccessType = %v, want %v", c.typ, got, c.gotAccess)
		}
		if got := isDynamicOnlyType(c.typ); got != c.dynOnly {
			t.Errorf("%v: isDynamicOnlyType = %v, want %v", c.typ, got, c.dynOnly)
		}
		if got := isStubEligibleType(c.typ); got != c.stubEligible {
			t.Errorf("%v: isStubEligibleType = %v, want %v", c.typ, got, c.stubEligible)
		}
	}
}

func TestPICAllowedDynRelTypes(t *testing.T) {
	allowed := []RelType{R_ARM_RELATIVE, R_ARM_COPY, R_ARM_GLOB_DAT, R_ARM_JUMP_SLOT, R_ARM_ABS32, R_ARM_ABS32_NOI, R_ARM_PC24}
	for _, typ := range allowed {
		if !picAllowedDynRelTypes[typ] {
			t.Errorf("%v should be PIC-allowed per §4.7", typ)
		}
	}
	disallowed := []RelType{R_ARM_ABS16, R_ARM_ABS12, R_ARM_MOVT_ABS}
	for _, typ := range disallowed {
		if picAllowedDynRelTypes[typ] {
			t.Errorf("%v should not be PIC-allowed", typ)
		}
	}
}

// TestARMEABINumberingConsistency records (per DESIGN.md D7) that the
// handful of RelType constants whose types pkg/linker's readInPlaceAddend
// matches through Go's own debug/elf.R_ARM_* constants carry matching numeric
// values, since armbackend never imports those constants directly.
func TestARMEABINumberingConsistency(t *testing.T) {
	want := map[RelType]uint32{
		R_ARM_ABS32:    2,
		R_ARM_REL32:    3,
		R_ARM_GOTOFF32: 24,
		R_ARM_BASE_PREL: 25,
		R_ARM_TARGET1:  38,
		R_ARM_TARGET2:  41,
		R_ARM_GOT_ABS:  95,
		R_ARM_GOT_PREL: 96,
	}
	for typ, num := range want {
		if uint32(typ) != num {
			t.Errorf("%v = %d, want %d (AAELF32 numbering)", typ, uint32(typ), num)
		}
	}
}
