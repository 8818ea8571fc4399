package main

// SegSpec names a Mach-O (segment, section) pair with the flags/alignment a
// backend wants it created with, used for the bootstrap text section and
// any backend-specific well-known sections.
type SegSpec struct {
	Segname  string
	Sectname string
	Flags    uint32
	Align    uint32
}

// Backend is the abstract architecture contract: opcode lookup, operand
// parser(s), invalid-form gate, byte emission, fix registration -- the
// same shape for PPC, m68k, i860, i386/x86_64, HPPA, SPARC, m88k, and ARM;
// only the table contents, byte sex, and comment/line-separator
// characters differ per target.
type Backend interface {
	Name() string
	TextSegName() SegSpec

	// NopFill gives the alignment frag the architecture's preferred
	// no-op encoding, used when an instruction section is padded instead
	// of zero-filled.
	NopFill() []byte

	// BigEndian reports this target's byte sex.
	BigEndian() bool

	// CommentChar and LineSeparatorChar give the preprocessor the
	// architecture-specific line-comment and statement-separator
	// characters.
	CommentChar() byte
	LineSeparatorChar() byte

	// Assemble parses mnemonic+operands and appends bytes/fixes to the
	// current frag.
	Assemble(as *Assembler, mnemonic, operands string, loc SourceLocation) error

	// PseudoOp handles a backend-specific pseudo-op (e.g. PPC's `.greg`,
	// `.no_ppc601`, `.flag_reg`/`.noflag_reg`). ok is false when name isn't one
	// of this backend's extensions, in which case the caller falls back to
	// the shared pseudo-op table.
	PseudoOp(as *Assembler, name, rest string, loc SourceLocation) (ok bool, err error)

	// ApplyFix writes the final bytes for one resolved fix into buf
	//.
	ApplyFix(buf []byte, fix *Fix, value int64) error

	// RelocMachType maps a RelocType to this target's Mach-O r_type field
	// and relocation entry length code (0=byte,1=word,2=long,3=quad).
	RelocMachType(rt RelocType) (rType uint8, length uint8)

	// CPUType/CPUSubtype are the mach_header fields for this backend.
	CPUType() int32
	CPUSubtype() int32
}
