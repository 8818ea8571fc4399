package main

import (
	"fmt"
	"strconv"
	"strings"
)

// OperandType tags one operand slot's syntax and encoding.
type OperandType int

const (
	OpGREG  OperandType = iota // general register r0..r31
	OpG0REG                    // general register, may not be named "r0"/"0" literally in this slot
	OpFREG                     // floating register f0..f31
	OpVREG                     // vector register v0..v31
	OpSGREG                    // segment register sr0..sr15
	OpSPREG                    // special-purpose register, named or numeric
	OpBCND                     // branch condition (lt/gt/eq/so/un, optional crN+ prefix)
	OpCRF                      // condition-register field cr0..cr7, also accepts a raw field number 0-7
	OpCRFONLY                  // condition-register field, cr0..cr7 only
	OpD                        // 16-bit displacement "d(ra)"
	OpDS                       // 16-bit displacement "d(ra)", 4-byte aligned
	OpSI                       // signed 16-bit immediate
	OpUI                       // unsigned 16-bit immediate
	OpHI                       // high 16-bit immediate, accepts hi16()/ha16()/lo16() wrappers
	OpJBSR                     // long-branch target resolved via a linker stub
	OpPCREL                    // pc-relative branch target (BR14/BR24)
	OpBADDR                    // absolute branch target (AA=1)
	OpSNUM                     // small signed numeric immediate, unrelocated
	OpNUM                      // small unsigned numeric immediate, unrelocated
	OpNUM0                     // numeric immediate defaulting to 0 when omitted
	OpFXM                      // mtcrf field mask: exactly one bit, or the mtcrf "new form" multi-bit mask
	OpMBE                      // rlwimi/rlwinm mask-end field
	OpSH                       // shift amount (0-31)
	OpMB                       // rlwimi/rlwinm mask-begin field
	OpZERO                     // fixed zero operand (no text consumed)
)

// ParsedOperand is one decoded operand slot's result.
type ParsedOperand struct {
	Type  OperandType
	Reg   uint32
	Imm   int64
	Sym   *Symbol
	HiWrap, HaWrap, LoWrap bool
}

func stripSpace(s string) string { return strings.TrimSpace(s) }

// splitTopLevelComma splits operand text on commas that are not inside
// parentheses, so the operands "r3,4(r1)" of lwz split to ["r3", "4(r1)"].
func splitTopLevelComma(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, stripSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, stripSpace(s[start:]))
	return parts
}

func parseGREG(tok string) (uint32, error) {
	tok = stripSpace(tok)
	if len(tok) >= 2 && (tok[0] == 'r' || tok[0] == 'R') {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 0 && n <= 31 {
			return uint32(n), nil
		}
	}
	n, err := strconv.Atoi(tok)
	if err == nil && n >= 0 && n <= 31 {
		return uint32(n), nil
	}
	return 0, fmt.Errorf("expected a general register, got %q", tok)
}

func parseG0REG(tok string) (uint32, error) {
	reg, err := parseGREG(tok)
	if err != nil {
		return 0, err
	}
	if reg == 0 {
		return 0, fmt.Errorf("register 0 is not permitted in this operand position")
	}
	return reg, nil
}

func parseFREG(tok string) (uint32, error) {
	tok = stripSpace(tok)
	if len(tok) >= 2 && (tok[0] == 'f' || tok[0] == 'F') {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 0 && n <= 31 {
			return uint32(n), nil
		}
	}
	return 0, fmt.Errorf("expected a floating register, got %q", tok)
}

func parseVREG(tok string) (uint32, error) {
	tok = stripSpace(tok)
	if len(tok) >= 2 && (tok[0] == 'v' || tok[0] == 'V') {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 0 && n <= 31 {
			return uint32(n), nil
		}
	}
	return 0, fmt.Errorf("expected a vector register, got %q", tok)
}

func parseCRF(tok string) (uint32, error) {
	tok = stripSpace(tok)
	if len(tok) >= 3 && strings.HasPrefix(tok, "cr") {
		n, err := strconv.Atoi(tok[2:])
		if err == nil && n >= 0 && n <= 7 {
			return uint32(n), nil
		}
	}
	n, err := strconv.Atoi(tok)
	if err == nil && n >= 0 && n <= 7 {
		return uint32(n), nil
	}
	return 0, fmt.Errorf("expected a condition register field (cr0..cr7), got %q", tok)
}

var bcndNames = map[string]uint32{
	"lt": 0, "gt": 1, "eq": 2, "so": 3, "un": 3,
	"nl": 4, "ng": 5, "ne": 6, "ns": 7, "nu": 7,
}

// parseBCND parses a branch-condition operand: a condition name, optionally
// prefixed "crN+" to select a non-zero CR field.
func parseBCND(tok string) (bi uint32, err error) {
	tok = stripSpace(tok)
	crf := uint32(0)
	if idx := strings.Index(tok, "+"); idx > 0 && strings.HasPrefix(tok, "cr") {
		crf, err = parseCRF(tok[:idx])
		if err != nil {
			return 0, err
		}
		tok = tok[idx+1:]
	}
	bit, ok := bcndNames[tok]
	if !ok {
		return 0, fmt.Errorf("unknown branch condition %q", tok)
	}
	return crf*4 + bit, nil
}

var sprNames = map[string]uint32{
	"xer": 1, "lr": 8, "ctr": 9, "dsisr": 18, "dar": 19, "sdr1": 25,
	"srr0": 26, "srr1": 27, "sprg0": 272, "sprg1": 273, "sprg2": 274, "sprg3": 275,
}

// parseSPREG accepts a named or numeric special-purpose register and
// returns the 10-bit field with its 5-bit halves already swapped the way
// the encoded instruction wants them.
func parseSPREG(tok string) (uint32, error) {
	tok = stripSpace(tok)
	var n uint32
	if named, ok := sprNames[strings.ToLower(tok)]; ok {
		n = named
	} else {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 || v > 1023 {
			return 0, fmt.Errorf("expected a special-purpose register, got %q", tok)
		}
		n = uint32(v)
	}
	return (n&0x1f)<<5 | (n>>5)&0x1f, nil
}

// parseRegOperand dispatches to the operand parser named by t, the
// operand-type-driven parsing spec.md §4.9 calls for: each slot in an
// opcode's form carries an OperandType, and the caller asks for that type's
// parser rather than hardcoding one register file for every slot.
func parseRegOperand(t OperandType, tok string) (ParsedOperand, error) {
	var reg uint32
	var err error
	switch t {
	case OpGREG:
		reg, err = parseGREG(tok)
	case OpG0REG:
		reg, err = parseG0REG(tok)
	case OpFREG:
		reg, err = parseFREG(tok)
	case OpVREG:
		reg, err = parseVREG(tok)
	case OpSGREG:
		reg, err = parseSGREG(tok)
	case OpSPREG:
		reg, err = parseSPREG(tok)
	case OpCRF:
		reg, err = parseCRF(tok)
	case OpCRFONLY:
		reg, err = parseCRFOnly(tok)
	case OpBCND:
		reg, err = parseBCNDOrField(tok)
	default:
		return ParsedOperand{}, fmt.Errorf("operand type %d has no register parser", t)
	}
	if err != nil {
		return ParsedOperand{}, err
	}
	return ParsedOperand{Type: t, Reg: reg}, nil
}

// parseDisplacement parses "d(ra)" or "d(ra,rb)"-free D/DS-form memory
// operands into a displacement expression plus base register.
func parseDisplacement(tok string, ds bool, syms *SymbolTable, cur *Section) (disp *Expr, ra uint32, err error) {
	tok = stripSpace(tok)
	open := strings.IndexByte(tok, '(')
	if open < 0 || !strings.HasSuffix(tok, ")") {
		return nil, 0, fmt.Errorf("expected d(rN) displacement operand, got %q", tok)
	}
	dispText := stripSpace(tok[:open])
	regText := stripSpace(tok[open+1 : len(tok)-1])
	ra, err = parseGREG(regText)
	if err != nil {
		return nil, 0, err
	}
	if dispText == "" {
		disp = absoluteExpr(0)
	} else {
		p := newExprParser(dispText, syms, cur)
		disp, err = p.Parse()
		if err != nil {
			return nil, 0, err
		}
	}
	if ds && disp.Seg == SegAbsolute && disp.AddNumber&0x3 != 0 {
		return nil, 0, fmt.Errorf("displacement %d is not 4-byte aligned", disp.AddNumber)
	}
	return disp, ra, nil
}

// parseImmediate parses a general numeric/symbolic expression operand,
// recognizing the hi16()/ha16()/lo16() wrapper functions used on HI-class
// operands.
func parseImmediate(tok string, syms *SymbolTable, cur *Section) (*Expr, bool, bool, bool, error) {
	tok = stripSpace(tok)
	hi, ha, lo := false, false, false
	switch {
	case strings.HasPrefix(tok, "hi16(") && strings.HasSuffix(tok, ")"):
		hi = true
		tok = tok[len("hi16(") : len(tok)-1]
	case strings.HasPrefix(tok, "ha16(") && strings.HasSuffix(tok, ")"):
		ha = true
		tok = tok[len("ha16(") : len(tok)-1]
	case strings.HasPrefix(tok, "lo16(") && strings.HasSuffix(tok, ")"):
		lo = true
		tok = tok[len("lo16(") : len(tok)-1]
	}
	p := newExprParser(tok, syms, cur)
	e, err := p.Parse()
	if err != nil {
		return nil, false, false, false, err
	}
	return e, hi, ha, lo, nil
}

func parseNumeric(tok string) (int64, error) {
	return strconv.ParseInt(stripSpace(tok), 0, 64)
}

// parseFXM parses an mtcrf CR-field mask: a power-of-two bit in the
// classic form, or an arbitrary multi-bit mask in the "new form".
func parseFXM(tok string, newForm bool) (uint32, error) {
	v, err := parseNumeric(tok)
	if err != nil || v < 0 || v > 0xff {
		return 0, fmt.Errorf("expected an 8-bit CR field mask, got %q", tok)
	}
	mask := uint32(v)
	if !newForm {
		if mask == 0 || mask&(mask-1) != 0 {
			return 0, fmt.Errorf("mtcrf field mask %#x must have exactly one bit set", mask)
		}
	}
	return mask, nil
}
