package linker

// Chunker is implemented by every object that contributes a section (and
// optionally a program header) to the final output: the ELF/program/section
// headers, merged input sections, and every chunk the ARM backend owns
// (.got, .plt, .rel.dyn, .rel.plt, .dynsym, .ARM.exidx, .ARM.extab,
// .ARM.attributes, and the copy-relocation .bss/.tbss regions).
// The teacher's snapshot never needed this interface because it only had
// three chunk kinds in scope; this repository has enough kinds (the ARM
// backend alone owns ten) that a real interface replaces what the
// teacher forks do by hand-casting through a type switch.
type Chunker interface {
	GetName() string
	GetShdr() *SectionHeader
	GetShndx() int32
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context)
}

type Chunk struct {
	Name  string
	Shdr  SectionHeader
	Shndx int32
}

func NewChunk() Chunk {
	return Chunk{
		Shdr: SectionHeader{
			Addralign: 1,
		},
		Shndx: -1,
	}
}

func (c *Chunk) GetName() string        { return c.Name }
func (c *Chunk) GetShdr() *SectionHeader { return &c.Shdr }
func (c *Chunk) GetShndx() int32        { return c.Shndx }

// UpdateShdr and CopyBuf default to no-ops so embedding types only need to
// override the hooks that matter to them (mirrors the teacher's OutputEhdr/
// OutputPhdr/OutputShdr, each of which implements only what it needs).
func (c *Chunk) UpdateShdr(ctx *Context) {}
func (c *Chunk) CopyBuf(ctx *Context)    {}
