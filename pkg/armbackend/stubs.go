package armbackend

// ISA identifies which instruction set a branch site or target executes
// in, the axis the four stub prototypes are keyed on (§4.5, §9).
type ISA uint8

const (
	ISAArm ISA = iota
	ISAThumb
)

// stubProto is one of the four registered prototypes (ARM→ARM, ARM→Thumb,
// Thumb→ARM, Thumb→Thumb). Each emits a short sequence that loads an
// absolute 32-bit address and branches to it, so it never itself runs out
// of range regardless of how far the real target ends up being.
type stubProto struct {
	From, To ISA
	Size     uint32
}

// StubFactory holds the four prototypes initTargetStubs registers (§4.5
// last paragraph) and decides, for one out-of-range branch, which
// prototype applies and emits its bytes.
type StubFactory struct {
	pic       bool
	prototypes [4]stubProto
}

func NewStubFactory(pic bool) *StubFactory {
	return &StubFactory{
		pic: pic,
		prototypes: [4]stubProto{
			{From: ISAArm, To: ISAArm, Size: 8},
			{From: ISAArm, To: ISAThumb, Size: 8},
			{From: ISAThumb, To: ISAArm, Size: 8},
			{From: ISAThumb, To: ISAThumb, Size: 12},
		},
	}
}

func isaOf(t RelType) ISA {
	switch t {
	case R_ARM_THM_CALL, R_ARM_THM_JUMP24, R_ARM_THM_JUMP19, R_ARM_THM_JUMP6,
		R_ARM_THM_JUMP11, R_ARM_THM_JUMP8:
		return ISAThumb
	default:
		return ISAArm
	}
}

// protoFor picks the prototype matching a (from, to) ISA pair; the table
// in NewStubFactory always has exactly one match per pair.
func (f *StubFactory) protoFor(from, to ISA) stubProto {
	for _, p := range f.prototypes {
		if p.From == from && p.To == to {
			return p
		}
	}
	return f.prototypes[0]
}

// Create emits the stub's machine code for a branch from ISA `from` to an
// absolute target address `addr`. ARM targets: LDR PC, [PC, #-4] / .word
// addr. Thumb targets additionally set bit 0 of the loaded address (the
// BX/interworking convention marking a Thumb destination). The 12-byte
// Thumb→Thumb prototype also starts with a BX PC / NOP pair to transition
// out of Thumb state before the LDR executes in ARM mode; the 8-byte
// Thumb→ARM prototype has no such pair.
func (f *StubFactory) Create(from, to ISA, addr uint32) []byte {
	proto := f.protoFor(from, to)
	word := addr
	if to == ISAThumb {
		word |= 1
	}

	switch proto.Size {
	case 8:
		buf := make([]byte, 8)
		buf[0], buf[1], buf[2], buf[3] = 0x04, 0xf0, 0x1f, 0xe5 // ldr pc, [pc, #-4]
		buf[4] = byte(word)
		buf[5] = byte(word >> 8)
		buf[6] = byte(word >> 16)
		buf[7] = byte(word >> 24)
		return buf
	default:
		buf := make([]byte, 12)
		buf[0], buf[1] = 0x78, 0x47 // bx pc
		buf[2], buf[3] = 0xc0, 0x46 // nop (mov r8, r8)
		buf[4], buf[5], buf[6], buf[7] = 0x04, 0xf0, 0x1f, 0xe5 // ldr pc, [pc, #-4]
		buf[8] = byte(word)
		buf[9] = byte(word >> 8)
		buf[10] = byte(word >> 16)
		buf[11] = byte(word >> 24)
		return buf
	}
}
