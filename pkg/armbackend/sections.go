package armbackend

import (
	"armld/pkg/linker"
)

// AttributesSection implements §4.8's documented limitation: the first
// input object's .ARM.attributes content is kept verbatim; every
// subsequent input's is discarded rather than merged per the ARM ABI's
// attribute-reconciliation rules. A correct implementation would merge
// per-tag (e.g. widening Tag_CPU_arch to the union of all inputs); this
// preserves the teacher-family's "generic object builder" simplicity.
type AttributesSection struct {
	linker.Chunk
	data []byte
}

func NewAttributesSection() *AttributesSection {
	a := &AttributesSection{Chunk: linker.NewChunk()}
	a.Name = ".ARM.attributes"
	a.Shdr.Type = SHT_ARM_ATTRIBUTES
	a.Shdr.Addralign = 1
	return a
}

func (a *AttributesSection) HasContent() bool { return len(a.data) > 0 }

// MergeFrom is mergeSection's ARM.attributes special case: takes ownership
// of contents the first time it's called, silently discards afterward.
func (a *AttributesSection) MergeFrom(contents []byte) {
	if len(a.data) > 0 {
		return
	}
	a.data = append([]byte(nil), contents...)
	a.Shdr.Size = uint32(len(a.data))
}

func (a *AttributesSection) CopyBuf(ctx *linker.Context) {
	copy(ctx.Buf[a.Shdr.Offset:], a.data)
}

// collectAttributes scans every live input section named .ARM.attributes
// across every object and feeds the first one found to the backend's
// AttributesSection, implementing §4.8's mergeSection hook without
// threading a new lifecycle method through TargetBackend: this repository
// calls it once from DoPreLayout, after all objects are loaded and before
// any section data is needed.
func (b *Backend) collectAttributes(ctx *linker.Context) {
	for _, file := range ctx.Objs {
		for _, isec := range file.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			if isec.Shdr().Type != SHT_ARM_ATTRIBUTES {
				continue
			}
			b.attributes.MergeFrom(isec.Contents)
			isec.IsAlive = false
		}
	}
}
