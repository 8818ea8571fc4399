package main

import (
	"fmt"
	"strings"
)

const (
	cpuTypePowerPC   = 18
	cpuSubtypePPCAll = 0
	y_bit            = 0x00200000
	branchAlwaysMask = 0x02800000
)

// PPCBackend implements Backend for 32-bit PowerPC. Byte sex is big-endian; `;` is the line-comment
// character and newline is the statement separator, the classic cctools
// PPC convention.
type PPCBackend struct {
	opts *Options
}

func newPPCBackend(opts *Options) *PPCBackend { return &PPCBackend{opts: opts} }

func (b *PPCBackend) Name() string       { return "ppc" }
func (b *PPCBackend) BigEndian() bool    { return true }
func (b *PPCBackend) CommentChar() byte  { return ';' }
func (b *PPCBackend) LineSeparatorChar() byte { return '\n' }
func (b *PPCBackend) CPUType() int32     { return cpuTypePowerPC }
func (b *PPCBackend) CPUSubtype() int32  { return cpuSubtypePPCAll }

func (b *PPCBackend) TextSegName() SegSpec {
	return SegSpec{Segname: "__TEXT", Sectname: "__text", Flags: sAttrSomeInstructions | sAttrPureInstructions, Align: 2}
}

// NopFill returns the big-endian encoding of "ori r0,r0,0", the
// conventional PowerPC no-op, used to pad instruction sections on align.
func (b *PPCBackend) NopFill() []byte {
	v := dForm(24, 0, 0, 0)
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// predictMode is the decoded branch-prediction suffix.
type predictMode int

const (
	predictNone predictMode = iota
	predictLikelyTaken
	predictLikelyNotTaken
	predictVeryLikelyTaken
	predictVeryLikelyNotTaken
)

// detachPrediction strips a trailing +, ++, -, or -- suffix from mnemonic
// and classifies it.
func detachPrediction(mnemonic string) (string, predictMode) {
	switch {
	case strings.HasSuffix(mnemonic, "++"):
		return mnemonic[:len(mnemonic)-2], predictVeryLikelyTaken
	case strings.HasSuffix(mnemonic, "--"):
		return mnemonic[:len(mnemonic)-2], predictVeryLikelyNotTaken
	case strings.HasSuffix(mnemonic, "+"):
		return mnemonic[:len(mnemonic)-1], predictLikelyTaken
	case strings.HasSuffix(mnemonic, "-"):
		return mnemonic[:len(mnemonic)-1], predictLikelyNotTaken
	default:
		return mnemonic, predictNone
	}
}

// yBitFor computes the Y-bit (set to predict "branch taken") for a
// single-char suffix under -static_branch_prediction_Y_bit mode; double-char
// suffixes always use the AT-bits encoding handled by atBitsFor instead.
func yBitFor(mode predictMode) (bit uint32, set bool) {
	switch mode {
	case predictLikelyTaken:
		return y_bit, true
	case predictLikelyNotTaken:
		return 0, true
	default:
		return 0, false
	}
}

// atBitsFor computes the 2-bit AT field (BO bits 3-4) for the AT-bits
// encoding mode, used for double-char suffixes always, and single-char
// suffixes when -static_branch_prediction_AT_bits is selected.
func atBitsFor(mode predictMode) (bits uint32, set bool) {
	switch mode {
	case predictLikelyTaken, predictVeryLikelyTaken:
		return 0x3, true
	case predictLikelyNotTaken, predictVeryLikelyNotTaken:
		return 0x2, true
	default:
		return 0, false
	}
}

// ppcForm is one table entry's encoder: given the split operand tokens, it
// returns the packed opcode and any fix(es) needed, or an error. mismatch
// signals "this form's operand shape doesn't apply; try the next one": a
// mnemonic with several encodings tries each form in table order and
// reports the last error if none fits.
type ppcForm struct {
	argc    int
	encode  func(as *Assembler, args []string, pred predictMode, loc SourceLocation) (opcode uint32, fix *pendingPPCFix, mismatch bool, err error)
}

// pendingPPCFix describes a fix to register once the instruction's bytes
// have been appended to the frag.
type pendingPPCFix struct {
	relocType  RelocType
	pcrel      bool
	sym        *Symbol
	addend     int64
	predicted  bool
}

var ppcOpcodeTable = map[string][]ppcForm{}

func registerPPC(name string, argc int, enc func(as *Assembler, args []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error)) {
	ppcOpcodeTable[name] = append(ppcOpcodeTable[name], ppcForm{argc: argc, encode: enc})
}

func dForm(op, rt, ra uint32, simm int64) uint32 {
	return op<<26 | rt<<21 | ra<<16 | uint32(simm)&0xffff
}

func xForm(op, rt, ra, rb, xo uint32, rc bool) uint32 {
	v := op<<26 | rt<<21 | ra<<16 | rb<<11 | xo<<1
	if rc {
		v |= 1
	}
	return v
}

func xoForm(op, rt, ra, rb uint32, oe bool, xo uint32, rc bool) uint32 {
	v := op<<26 | rt<<21 | ra<<16 | rb<<11
	if oe {
		v |= 1 << 10
	}
	v |= xo << 1
	if rc {
		v |= 1
	}
	return v
}

func xfxForm(op, rt uint32, spr uint32, xo uint32) uint32 {
	return op<<26 | rt<<21 | spr<<11 | xo<<1
}

func mForm(op, rs, ra, shOrRb, mb, me uint32, rc bool) uint32 {
	v := op<<26 | rs<<21 | ra<<16 | shOrRb<<11 | mb<<6 | me<<1
	if rc {
		v |= 1
	}
	return v
}

func bForm(bo, bi uint32, aa, lk bool) uint32 {
	v := uint32(16)<<26 | bo<<21 | bi<<16
	if aa {
		v |= 1 << 1
	}
	if lk {
		v |= 1
	}
	return v
}

func iForm(aa, lk bool) uint32 {
	v := uint32(18) << 26
	if aa {
		v |= 1 << 1
	}
	if lk {
		v |= 1
	}
	return v
}

func init() {
	registerPPC("add", 3, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		ra, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		rb, err := parseGREG(a[2])
		if err != nil {
			return 0, nil, true, err
		}
		return xoForm(31, rt, ra, rb, false, 266, false), nil, false, nil
	})
	registerPPC("addc", 3, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		ra, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		rb, err := parseGREG(a[2])
		if err != nil {
			return 0, nil, true, err
		}
		return xoForm(31, rt, ra, rb, false, 10, false), nil, false, nil
	})
	registerImmD("addi", 14, false)
	registerImmD("addis", 15, true)
	registerPPC("li", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		e, hi, ha, lo, err := parseImmediate(a[1], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		return encodeSIOperand(dForm(14, rt, 0, 0), e, hi, ha, lo, 16)
	})
	registerPPC("lis", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		e, hi, ha, lo, err := parseImmediate(a[1], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		_ = hi
		return encodeSIOperand(dForm(15, rt, 0, 0), e, true, ha, lo, 16)
	})
	registerLoadStore("lwz", 32, false, false, OpGREG)
	registerLoadStore("lwzu", 33, false, true, OpGREG)
	registerLoadStore("stw", 36, false, false, OpGREG)
	registerLoadStore("stwu", 37, false, true, OpGREG)
	registerLoadStore("lfs", 48, false, false, OpFREG)
	registerLoadStore("stfs", 52, false, false, OpFREG)
	registerLoadStoreDS("ld", 58, 0)
	registerLoadStoreDS("std", 62, 0)

	registerPPC("lmw", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		disp, ra, err := parseDisplacement(a[1], false, as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		if ra >= rt {
			return 0, nil, false, fmt.Errorf("lmw: RA (r%d) must be less than RT (r%d)", ra, rt)
		}
		if disp.Seg != SegAbsolute {
			return 0, nil, false, fmt.Errorf("lmw requires a constant displacement")
		}
		return dForm(46, rt, ra, disp.AddNumber), nil, false, nil
	})

	registerPPC("b", 1, branchUncond(false, false))
	registerPPC("bl", 1, branchUncond(false, true))
	registerPPC("ba", 1, branchUncond(true, false))
	registerPPC("bla", 1, branchUncond(true, true))

	registerPPC("bc", 3, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		bo, err := parseNumeric(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		bi, err := parseBCNDOrField(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		if !as.Opts.ForceCPUSubtypeAll && reservedBOField(uint32(bo)) {
			return 0, nil, false, fmt.Errorf("reserved BO field value %d on conditional branch", bo)
		}
		opcode := bForm(uint32(bo), bi, false, false)
		predicted := pred != predictNone
		if ybit, ok := yBitFor(pred); ok && as.Opts.Prediction == PredictYBit {
			opcode |= ybit
		} else if at, ok := atBitsFor(pred); ok {
			opcode = (opcode &^ (0x3 << 21)) | at<<21
		}
		e, _, _, _, err := parseImmediate(a[2], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		rt := RelocBr14
		if predicted {
			rt = RelocBr14Predicted
		}
		return opcode, &pendingPPCFix{relocType: rt, pcrel: true, sym: e.AddSymbol, addend: e.AddNumber, predicted: predicted}, false, nil
	})

	registerPPC("cmpi", 2, cmpImmForm(11, false))
	registerPPC("cmpi", 3, cmpImmForm(11, true))
	registerPPC("cmpli", 2, cmpImmForm(10, false))
	registerPPC("cmpli", 3, cmpImmForm(10, true))
	registerPPC("cmp", 2, cmpRegForm(0, false))
	registerPPC("cmp", 3, cmpRegForm(0, true))
	registerPPC("cmpl", 2, cmpRegForm(32, false))
	registerPPC("cmpl", 3, cmpRegForm(32, true))

	registerPPC("mtspr", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		spr, err := parseSPREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		rs, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		return xfxForm(31, rs, spr, 467), nil, false, nil
	})
	registerPPC("mfspr", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		spr, err := parseSPREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		return xfxForm(31, rt, spr, 339), nil, false, nil
	})
	registerPPC("mtcrf", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		fxm, err := parseFXM(a[0], false)
		if err != nil {
			return 0, nil, true, err
		}
		rs, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		return 31<<26 | rs<<21 | fxm<<12 | 144<<1, nil, false, nil
	})
	registerPPC("mtsr", 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		sr, err := parseSGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		rs, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		return 31<<26 | rs<<21 | sr<<16 | 210<<1, nil, false, nil
	})
	registerPPC("rlwinm", 5, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		ra, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		rs, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		sh, err := parseNumeric(a[2])
		if err != nil || sh < 0 || sh > 31 {
			return 0, nil, true, fmt.Errorf("shift amount out of range 0..31")
		}
		mb, err := parseNumeric(a[3])
		if err != nil || mb < 0 || mb > 31 {
			return 0, nil, true, fmt.Errorf("mask-begin out of range 0..31")
		}
		me, err := parseNumeric(a[4])
		if err != nil || me < 0 || me > 31 {
			return 0, nil, true, fmt.Errorf("mask-end out of range 0..31")
		}
		return mForm(21, rs, ra, uint32(sh), uint32(mb), uint32(me), false), nil, false, nil
	})
	registerPPC("sc", 0, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		return 17<<26 | 1<<1, nil, false, nil
	})
	registerPPC("nop", 0, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		return dForm(24, 0, 0, 0), nil, false, nil
	})
	registerPPC("ori", 3, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		ra, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		rs, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		e, hi, ha, lo, err := parseImmediate(a[2], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		return encodeSIOperand(dForm(24, rs, ra, 0), e, hi, ha, lo, 16)
	})
}

func parseSGREG(tok string) (uint32, error) {
	tok = stripSpace(tok)
	if len(tok) >= 3 && strings.HasPrefix(strings.ToLower(tok), "sr") {
		n, err := parseNumeric(tok[2:])
		if err == nil && n >= 0 && n <= 15 {
			return uint32(n), nil
		}
	}
	return 0, fmt.Errorf("expected a segment register (sr0..sr15), got %q", tok)
}

// parseBCNDOrField accepts either a named branch condition or a raw BI
// field number 0-31.
func parseBCNDOrField(tok string) (uint32, error) {
	if bi, err := parseBCND(tok); err == nil {
		return bi, nil
	}
	n, err := parseNumeric(tok)
	if err != nil || n < 0 || n > 31 {
		return 0, fmt.Errorf("expected a branch condition or BI field, got %q", tok)
	}
	return uint32(n), nil
}

// reservedBOField rejects BO encodings the architecture manual marks
// reserved on conditional branches, outside the well-known
// decrement/predict/always families.
func reservedBOField(bo uint32) bool {
	switch bo &^ 0x3 { // ignore the two prediction/AT bits
	case 0x00, 0x04, 0x08, 0x0c, 0x10, 0x14:
		return false
	default:
		return true
	}
}

func registerImmD(name string, opcode uint32, haWrap bool) {
	registerPPC(name, 3, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		ra, err := parseGREG(a[1])
		if err != nil {
			return 0, nil, true, err
		}
		e, hi, ha, lo, err := parseImmediate(a[2], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		if haWrap && !hi && !ha && !lo {
			ha = true
		}
		return encodeSIOperand(dForm(opcode, rt, ra, 0), e, hi, ha, lo, 16)
	})
}

// encodeSIOperand finishes a D-form instruction whose low 16 bits are a
// signed/high/low-adjusted immediate: absolute values are packed directly,
// symbolic ones register a VANILLA/HI16/HA16/LO16 fix.
func encodeSIOperand(base uint32, e *Expr, hi, ha, lo bool, width int) (uint32, *pendingPPCFix, bool, error) {
	if e.Seg == SegAbsolute && !hi && !ha && !lo {
		return base | uint32(e.AddNumber)&0xffff, nil, false, nil
	}
	rt := RelocVanilla
	switch {
	case hi:
		rt = RelocHi16
	case ha:
		rt = RelocHa16
	case lo:
		rt = RelocLo16
	}
	if e.Seg == SegAbsolute {
		v := e.AddNumber
		if ha {
			v += 0x8000
		}
		if hi || ha {
			return base | uint32(v>>16)&0xffff, nil, false, nil
		}
		return base | uint32(v)&0xffff, nil, false, nil
	}
	return base, &pendingPPCFix{relocType: rt, pcrel: false, sym: e.AddSymbol, addend: e.AddNumber}, false, nil
}

// registerLoadStore registers a D-form load/store mnemonic. rtType selects
// the operand parser for the RT slot: OpGREG for the integer load/store
// family, OpFREG for the float family (lfs/stfs and friends), so `lfs
// f1,8(r2)` parses its destination as a floating register instead of
// rejecting it as an invalid general register.
func registerLoadStore(name string, opcode uint32, ds bool, update bool, rtType OperandType) {
	registerPPC(name, 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		operand, err := parseRegOperand(rtType, a[0])
		if err != nil {
			return 0, nil, true, err
		}
		rt := operand.Reg
		disp, ra, err := parseDisplacement(a[1], ds, as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		if update && (ra == 0 || ra == rt) {
			return 0, nil, false, fmt.Errorf("load/store with update: RA may not be 0 or equal RT")
		}
		if disp.Seg == SegAbsolute {
			return dForm(opcode, rt, ra, disp.AddNumber), nil, false, nil
		}
		return dForm(opcode, rt, ra, 0), &pendingPPCFix{relocType: RelocVanilla, sym: disp.AddSymbol, addend: disp.AddNumber}, false, nil
	})
}

func registerLoadStoreDS(name string, opcode uint32, xo uint32) {
	registerPPC(name, 2, func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		rt, err := parseGREG(a[0])
		if err != nil {
			return 0, nil, true, err
		}
		disp, ra, err := parseDisplacement(a[1], true, as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		if disp.Seg == SegAbsolute {
			return opcode<<26 | rt<<21 | ra<<16 | (uint32(disp.AddNumber)&0xfffc) | xo, nil, false, nil
		}
		return opcode<<26 | rt<<21 | ra<<16 | xo, &pendingPPCFix{relocType: RelocLo14, sym: disp.AddSymbol, addend: disp.AddNumber}, false, nil
	})
}

func branchUncond(aa, lk bool) func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
	return func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		e, _, _, _, err := parseImmediate(a[0], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		rt := RelocBr24
		if !aa && e.Seg == SegUnknown && lk {
			rt = RelocJbsr // long-branch linker stub: unresolved external call
		}
		return iForm(aa, lk), &pendingPPCFix{relocType: rt, pcrel: !aa, sym: e.AddSymbol, addend: e.AddNumber}, false, nil
	}
}

func cmpImmForm(opcode uint32, withCRF bool) func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
	return func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		idx := 0
		crfD := uint32(0)
		if withCRF {
			var err error
			crfD, err = parseCRFOnly(a[0])
			if err != nil {
				return 0, nil, true, err
			}
			idx = 1
		}
		l := uint32(0)
		if withCRF && len(a) == idx+3 {
			lv, err := parseNumeric(a[idx])
			if err == nil {
				l = uint32(lv)
				idx++
			}
		}
		if l != 0 && !as.Opts.ForceCPUSubtypeAll {
			return 0, nil, false, fmt.Errorf("L-bit set on a 32-bit-target comparison")
		}
		ra, err := parseGREG(a[idx])
		if err != nil {
			return 0, nil, true, err
		}
		e, _, _, _, err := parseImmediate(a[idx+1], as.Symtab, as.Sections.Current())
		if err != nil {
			return 0, nil, true, err
		}
		base := opcode<<26 | crfD<<23 | l<<21 | ra<<16
		if e.Seg == SegAbsolute {
			return base | uint32(e.AddNumber)&0xffff, nil, false, nil
		}
		return base, &pendingPPCFix{relocType: RelocVanilla, sym: e.AddSymbol, addend: e.AddNumber}, false, nil
	}
}

func cmpRegForm(xo uint32, withCRF bool) func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
	return func(as *Assembler, a []string, pred predictMode, loc SourceLocation) (uint32, *pendingPPCFix, bool, error) {
		idx := 0
		crfD := uint32(0)
		if withCRF {
			var err error
			crfD, err = parseCRFOnly(a[0])
			if err != nil {
				return 0, nil, true, err
			}
			idx = 1
		}
		ra, err := parseGREG(a[idx])
		if err != nil {
			return 0, nil, true, err
		}
		rb, err := parseGREG(a[idx+1])
		if err != nil {
			return 0, nil, true, err
		}
		return 31<<26 | crfD<<23 | ra<<16 | rb<<11 | xo<<1, nil, false, nil
	}
}

func parseCRFOnly(tok string) (uint32, error) {
	if !strings.HasPrefix(stripSpace(tok), "cr") {
		return 0, fmt.Errorf("expected cr0..cr7, got %q", stripSpace(tok))
	}
	n, err := parseCRF(tok)
	if err != nil {
		return 0, fmt.Errorf("expected cr0..cr7: %w", err)
	}
	return n, nil
}

// Assemble implements Backend.Assemble.
func (b *PPCBackend) Assemble(as *Assembler, mnemonic, operands string, loc SourceLocation) error {
	base, pred := detachPrediction(mnemonic)
	rc := false
	name := base
	if strings.HasSuffix(base, ".") && base != "." {
		name = base[:len(base)-1]
		rc = true
	}
	forms, ok := ppcOpcodeTable[name]
	if !ok {
		return fmt.Errorf("unknown PPC mnemonic %q", mnemonic)
	}
	var args []string
	if strings.TrimSpace(operands) != "" {
		args = splitTopLevelComma(operands)
	}

	var lastErr error
	for _, form := range forms {
		if form.argc != len(args) {
			continue
		}
		opcode, fix, mismatch, err := form.encode(as, args, pred, loc)
		if err != nil {
			lastErr = err
			if mismatch {
				continue
			}
			return err
		}
		if rc {
			opcode |= 1
		}
		b.emit(as, opcode, fix, loc)
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("no operand form of %q matches %d argument(s)", name, len(args))
}

func (b *PPCBackend) emit(as *Assembler, opcode uint32, fix *pendingPPCFix, loc SourceLocation) {
	sec := as.Sections.Current()
	buf := fragMore(as, sec, 4)
	buf[0] = byte(opcode >> 24)
	buf[1] = byte(opcode >> 16)
	buf[2] = byte(opcode >> 8)
	buf[3] = byte(opcode)
	f := sec.LastFrag
	f.OpcodeOff = len(f.Literal) - 4
	f.File, f.Line = loc.File, loc.LogicalLine

	dwarf2EmitInsn(as, 4)

	if fix == nil {
		return
	}
	where := f.OpcodeOff
	nf := fixNew(f, where, 4, fix.sym, nil, fix.addend, fix.pcrel, fix.pcrel, fix.relocType)
	nf.BranchPredicted = fix.predicted
	nf.SectdiffDivideByTwo = false
}

// PseudoOp implements Backend.PseudoOp: the PPC-only pseudo-ops.
func (b *PPCBackend) PseudoOp(as *Assembler, name, rest string, loc SourceLocation) (bool, error) {
	switch name {
	case ".greg":
		// .greg symbol, regnum -- declares symbol as a permanent alias for a
		// general register, the way cctools' ppc.c md_pseudo_table extends
		// pseudo-ops for this backend only.
		parts := splitTopLevelComma(rest)
		if len(parts) != 2 {
			return true, fmt.Errorf(".greg requires a symbol and a register number")
		}
		n, err := parseNumeric(parts[1])
		if err != nil || n < 0 || n > 31 {
			return true, fmt.Errorf(".greg: invalid register number")
		}
		as.Symtab.Redefine(stripSpace(parts[0]), uint64(n))
		return true, nil
	case ".no_ppc601":
		// Historically flags subsequent instructions; this backend tracks
		// it only to accept and ignore the directive without an "unknown
		// pseudo-op" error.
		return true, nil
	case ".flag_reg", ".noflag_reg":
		return true, nil
	}
	return false, nil
}

// ApplyFix implements Backend.ApplyFix, ported line-for-line from
// md_number_to_imm's relocation-aware byte packing.
func (b *PPCBackend) ApplyFix(buf []byte, fix *Fix, val int64) error {
	switch fix.RelocType {
	case RelocVanilla:
		switch fix.Size {
		case 4:
			buf[0] = byte(val >> 24)
			buf[1] = byte(val >> 16)
			buf[2] = byte(val >> 8)
			buf[3] = byte(val)
		case 2:
			buf[0] = byte(val >> 8)
			buf[1] = byte(val)
		case 1:
			buf[0] = byte(val)
		}
		return nil
	case RelocHi16:
		buf[2] = byte(val >> 24)
		buf[3] = byte(val >> 16)
		return nil
	case RelocLo16:
		buf[2] = byte(val >> 8)
		buf[3] = byte(val)
		return nil
	case RelocHa16:
		val += 0x00008000
		buf[2] = byte(val >> 24)
		buf[3] = byte(val >> 16)
		return nil
	case RelocLo14:
		buf[2] = byte(val >> 8)
		buf[3] |= byte(val & 0xfc)
		return nil
	case RelocBr14, RelocBr14Predicted:
		if fix.Pcrel {
			val += 4
		}
		if m := uint32(val) & 0xffff8000; m != 0 && m != 0xffff8000 {
			return fmt.Errorf("fixup of %d too large for field width of 16 bits", val)
		}
		if val&0x3 != 0 {
			return fmt.Errorf("fixup of %d is not to a 4 byte address", val)
		}
		if val&0x00008000 != 0 {
			opcode := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
			if opcode&branchAlwaysMask != branchAlwaysMask {
				if fix.RelocType == RelocBr14Predicted {
					opcode ^= y_bit
				}
				buf[0] = byte(opcode >> 24)
				buf[1] = byte(opcode >> 16)
				buf[2] = byte(opcode >> 8)
				buf[3] = byte(opcode)
			}
		}
		buf[2] = byte(val >> 8)
		buf[3] |= byte(val & 0xfc)
		return nil
	case RelocBr24:
		if fix.Pcrel {
			val += 4
		}
		if m := uint32(val) & 0xfc000000; m != 0 && m != 0xfc000000 {
			return fmt.Errorf("fixup of %d too large for field width of 26 bits", val)
		}
		if val&0x3 != 0 {
			return fmt.Errorf("fixup of %d is not to a 4 byte address", val)
		}
		buf[0] |= byte((val >> 24) & 0x03)
		buf[1] = byte(val >> 16)
		buf[2] = byte(val >> 8)
		buf[3] |= byte(val & 0xfc)
		return nil
	case RelocJbsr:
		return nil // no bytes written, relocation entry only
	default:
		return fmt.Errorf("bad relocation type %s", fix.RelocType)
	}
}

// RelocMachType maps a RelocType to the Mach-O PPC_RELOC_* constant and
// relocation-entry length code.
func (b *PPCBackend) RelocMachType(rt RelocType) (uint8, uint8) {
	switch rt {
	case RelocVanilla:
		return 0, 2 // PPC_RELOC_VANILLA, long
	case RelocHi16:
		return 2, 2
	case RelocLo16:
		return 1, 2
	case RelocHa16:
		return 4, 2
	case RelocLo14:
		return 7, 2
	case RelocBr14:
		return 5, 2
	case RelocBr14Predicted:
		return 15, 2
	case RelocBr24:
		return 6, 2
	case RelocJbsr:
		return 9, 2
	default:
		return 0, 2
	}
}
