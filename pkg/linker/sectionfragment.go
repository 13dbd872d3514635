package linker

import "math"

// SectionFragment is a piece of a mergeable input section (e.g. a single
// NUL-terminated string out of a .rodata.str merge group) that has been
// folded into a MergedSection. Grounded on the teacher's
// sectionfragment.go, widened to 32-bit offsets.
type SectionFragment struct {
	OutputSection *MergedSection
	Offset        uint32
	P2Align       uint32
	IsAlive       bool
}

func NewSectionFragment(m *MergedSection) *SectionFragment {
	return &SectionFragment{
		OutputSection: m,
		Offset:        math.MaxUint32,
		IsAlive:       true,
	}
}

func (s *SectionFragment) GetAddr() uint64 {
	return uint64(s.OutputSection.Shdr.Addr) + uint64(s.Offset)
}
