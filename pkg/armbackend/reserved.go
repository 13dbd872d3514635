package armbackend

// Reserved is the per-symbol resource bit-mask the scanner consults to
// make relocation scanning idempotent (§3, §9 "Reservation bit-mask").
// The teacher's ResolveInfo carried this as a raw bitfield with magic
// constants; this repository names it, matching the spec's instruction to
// rearchitect it as a named enumerated flag set while keeping the two
// values it calls out (ReserveGOT=0x2, GOTRel=0x4) — the rest are free.
type Reserved uint32

const (
	ReserveGOT Reserved = 0x2
	GOTRel     Reserved = 0x4
	ReservePLT Reserved = 0x8
	ReserveRel Reserved = 0x10
)

func (r Reserved) Has(flag Reserved) bool { return r&flag != 0 }
