package main

import "fmt"

// FragType tags the five frag variants the layout engine understands.
type FragType int

const (
	FragFill FragType = iota // literal bytes; repeated fr_var*fr_offset times when fr_var != 0
	FragAlign
	FragOrg
	FragLeb128
	FragDwarf2
)

func (t FragType) String() string {
	switch t {
	case FragFill:
		return "fill"
	case FragAlign:
		return "align"
	case FragOrg:
		return "org"
	case FragLeb128:
		return "leb128"
	case FragDwarf2:
		return "dwarf2dbg"
	default:
		return "unknown"
	}
}

// Frag is a bounded, append-only byte span inside a section. Ordinary
// instruction/data bytes live in a FragFill frag with VarSize == 0; the five
// relaxable/deferred forms additionally carry a Symbol/Offset pair resolved
// at layout.
type Frag struct {
	Type     FragType
	Owner    *Section
	Segname  string
	Sectname string

	Address uint64 // assigned by layout; 0 until then

	Literal []byte // the frag's bytes; for FragFill this is the whole fixed part
	VarSize int     // width of one repeated unit (FragFill/FragAlign), or item width hint
	Offset  int64   // FragFill: repeat count. FragAlign: power-of-2. FragOrg: byte offset from Symbol.
	Subtype int     // FragAlign: max bytes to pad. Others: backend-defined.
	Symbol  *Symbol // FragOrg target; nil for FragFill/FragAlign

	// OpcodeOff indexes the start of a machine instruction's bytes inside
	// Literal, so the PPC backend's md_number_to_imm can flip the Y-bit in
	// place after layout resolves a branch displacement's sign.
	OpcodeOff int

	File string
	Line int

	Fixes []*Fix

	Next   *Frag
	closed bool

	// Populated by layout: the frag's final byte content and size,
	// after relaxation, org/align padding, and leb128/dwarf2dbg encoding
	// have all been resolved to concrete values.
	ResolvedSize int
	FinalBytes   []byte
}

// fragNew opens a fresh, empty FragFill frag and makes it the section's
// current (last) frag.
func fragNew(sec *Section) *Frag {
	f := &Frag{Type: FragFill, Owner: sec, Segname: sec.Segname, Sectname: sec.Sectname, OpcodeOff: -1}
	if sec.LastFrag != nil {
		sec.LastFrag.Next = f
		sec.LastFrag.closed = true
	}
	sec.LastFrag = f
	if sec.RootFrag == nil {
		sec.RootFrag = f
	}
	return f
}

// fragMore returns n fresh bytes at the tail of sec's current frag, growing
// it in place.
func fragMore(as *Assembler, sec *Section, n int) []byte {
	f := sec.LastFrag
	if f == nil || f.closed {
		f = fragNew(sec)
	}
	start := len(f.Literal)
	f.Literal = as.Arena.Grow(f.Literal, n)
	return f.Literal[start : start+n]
}

// fragVar allocates a relaxable/deferred item: it closes the frag currently
// being filled, opens a dedicated frag of the given type holding maxChars
// placeholder bytes, then opens a fresh empty FragFill frag for whatever
// follows. Returns the placeholder bytes to initialize.
func fragVar(sec *Section, typ FragType, maxChars, varSize, subtype int, sym *Symbol, offset int64) []byte {
	prev := sec.LastFrag
	if prev != nil {
		prev.closed = true
	}
	v := &Frag{
		Type:    typ,
		VarSize: varSize,
		Subtype: subtype,
		Symbol:  sym,
		Offset:  offset,
		Literal: make([]byte, maxChars),
		Owner:   sec,
		Segname: sec.Segname, Sectname: sec.Sectname,
		OpcodeOff: -1,
		closed:    true,
	}
	if prev != nil {
		prev.Next = v
	} else {
		sec.RootFrag = v
	}
	sec.LastFrag = v
	fragNew(sec) // trailing empty frag for subsequent content
	return v.Literal
}

// fragAlign emits a FragAlign frag: pad sec's address up to 1<<pow2Align,
// using fillSize-byte units of the given fill pattern, capped at
// maxBytesToFill bytes (0 means unlimited).
func fragAlign(sec *Section, pow2Align int, fill []byte, fillSize int, maxBytesToFill int) error {
	if fillSize != 1 && fillSize != 2 && fillSize != 4 {
		return fmt.Errorf("invalid width %d for fill expression", fillSize)
	}
	maxChars := fillSize + (fillSize - 1)
	lit := fragVar(sec, FragAlign, maxChars, fillSize, maxBytesToFill, nil, int64(pow2Align))
	copy(lit, fill[:fillSize])
	return nil
}

// fragOrg emits a FragOrg frag: advance the section's address to
// sym.Value+offset at layout time.
func fragOrg(sec *Section, sym *Symbol, offset int64) {
	fragVar(sec, FragOrg, 0, 0, 0, sym, offset)
}

// fragFillDirective emits the frag backing `.fill count, size, value`: size
// bytes of `pattern`, repeated count times.
func fragFillDirective(sec *Section, count int, size int, pattern []byte) error {
	if size < 0 || size > 8 {
		return fmt.Errorf("invalid .fill size %d", size)
	}
	lit := fragVar(sec, FragFill, size, size, 0, nil, int64(count))
	copy(lit, pattern)
	return nil
}
