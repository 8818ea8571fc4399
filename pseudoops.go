package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// builtinPseudoOps lists every pseudo-op this assembler recognizes outside
// of a backend's own extension table. Used to reject a macro definition
// that would shadow one; dispatchPseudoOp dispatches through its own switch.
var builtinPseudoOps = map[string]bool{
	".align": true, ".p2align": true, ".p2alignw": true, ".p2alignl": true,
	".balign": true, ".balignw": true, ".balignl": true,
	".org": true, ".abs": true,
	".private_extern": true, ".indirect_symbol": true,
	".abort":  true,
	".ascii":  true, ".asciz": true, ".byte": true, ".short": true,
	".long": true, ".quad": true, ".octa": true,
	".comm": true, ".lcomm": true,
	".desc":   true,
	".double": true, ".single": true,
	".fill":           true,
	".globl":          true,
	".line":           true,
	".lsym":           true,
	".section":        true,
	".text":           true,
	".data":           true,
	".const":          true,
	".const_data":     true,
	".zerofill":       true,
	".tbss":           true,
	".secure_log_unique": true,
	".secure_log_reset":  true,
	".set":  true,
	".space": true, ".skip": true,
	".sleb128": true, ".uleb128": true,
	".stabd": true, ".stabn": true, ".stabs": true,
	".debug_note": true,
	".reference":  true, ".lazy_reference": true,
	".weak_reference": true, ".weak_definition": true,
	".weak_def_can_be_hidden": true,
	".no_dead_strip":          true,
	".symbol_resolver":        true,
	".include":                true,
	".macro": true, ".endmacro": true, ".endm": true,
	".macros_on": true, ".macros_off": true,
	".if": true, ".elseif": true, ".else": true, ".endif": true,
	".dump": true, ".load": true,
	".subsections_via_symbols": true,
	".machine":                 true,
	".inlineasmstart":          true, ".inlineasmend": true,
	".incbin":        true,
	".data_region":   true, ".end_data_region": true,
	".file": true, ".loc": true,
}

func isBuiltinPseudoOp(name string) bool { return builtinPseudoOps[name] }

// dispatchPseudoOp implements every shared (architecture-independent)
// pseudo-op in the table. The backend's own PseudoOp is tried first by
// the reader; this function only sees names the backend didn't claim.
func dispatchPseudoOp(as *Assembler, name, rest string, loc SourceLocation) error {
	switch name {
	case ".align":
		return pseudoAlign(as, rest, loc, false)
	case ".p2align":
		return pseudoAlignWidth(as, rest, loc, 1)
	case ".p2alignw":
		return pseudoAlignWidth(as, rest, loc, 2)
	case ".p2alignl":
		return pseudoAlignWidth(as, rest, loc, 4)
	case ".balign":
		return pseudoAlign(as, rest, loc, true)
	case ".balignw":
		return pseudoBalignWidth(as, rest, loc, 2)
	case ".balignl":
		return pseudoBalignWidth(as, rest, loc, 4)

	case ".org":
		return pseudoOrg(as, rest, loc)

	case ".abs":
		sec, ok := as.Sections.Lookup("", ".absolute")
		if !ok {
			sec = as.Sections.Section("", ".absolute", 0, 0)
		}
		as.Sections.SetCurrent(sec)
		return nil

	case ".private_extern":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.SetPrivateExtern(true) })
	case ".globl":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.SetExternal(true) })
	case ".no_dead_strip":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescNoDeadStrip })
	case ".weak_reference":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescWeakRef })
	case ".weak_definition", ".weak_def_can_be_hidden":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescWeakDef })
	case ".symbol_resolver":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescSymbolResolver })
	case ".reference":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescRefUndefNonLzy })
	case ".lazy_reference":
		return pseudoSymbolFlag(as, rest, func(s *Symbol) { s.Desc |= NDescRefUndefLazy })

	case ".indirect_symbol":
		return pseudoIndirectSymbol(as, rest)

	case ".abort":
		as.Diag.Fatal(loc, "assembly aborted by.abort")
		return nil

	case ".ascii", ".asciz":
		return pseudoString(as, rest, name == ".asciz")

	case ".byte":
		return pseudoIntList(as, rest, loc, 1)
	case ".short":
		return pseudoIntList(as, rest, loc, 2)
	case ".long":
		return pseudoIntList(as, rest, loc, 4)
	case ".quad":
		return pseudoIntList(as, rest, loc, 8)
	case ".octa":
		return pseudoIntList(as, rest, loc, 16)

	case ".single":
		return pseudoFloatList(as, rest, loc, 4)
	case ".double":
		return pseudoFloatList(as, rest, loc, 8)

	case ".comm":
		return pseudoComm(as, rest, loc, false)
	case ".lcomm":
		return pseudoComm(as, rest, loc, true)

	case ".desc":
		return pseudoDesc(as, rest)

	case ".fill":
		return pseudoFill(as, rest, loc)

	case ".line":
		n, _, err := GetAbsoluteExpression(rest, as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		as.currentLine = int(n)
		return nil

	case ".lsym":
		return pseudoLsym(as, rest, loc)

	case ".section":
		return pseudoSection(as, rest)
	case ".text":
		as.Sections.SetCurrent(as.Sections.Section("__TEXT", "__text", sAttrSomeInstructions|sAttrPureInstructions, 2))
		return nil
	case ".data":
		as.Sections.SetCurrent(as.Sections.Section("__DATA", "__data", sRegular, 2))
		return nil
	case ".const":
		as.Sections.SetCurrent(as.Sections.Section("__TEXT", "__const", sRegular, 2))
		return nil
	case ".const_data":
		as.Sections.SetCurrent(as.Sections.Section("__DATA", "__const", sRegular, 2))
		return nil

	case ".zerofill":
		return pseudoZerofill(as, rest, loc)
	case ".tbss":
		return pseudoZerofill(as, "__DATA,__thread_bss,"+rest, loc)

	case ".secure_log_unique":
		return as.Diag.SecureLogUnique(loc, strings.TrimSpace(rest))
	case ".secure_log_reset":
		as.Diag.SecureLogReset()
		return nil

	case ".set":
		return pseudoSet(as, rest)

	case ".space", ".skip":
		return pseudoSpace(as, rest, loc)

	case ".sleb128":
		return pseudoLeb128(as, rest, loc, true)
	case ".uleb128":
		return pseudoLeb128(as, rest, loc, false)

	case ".stabd", ".stabn", ".stabs":
		// Stabs debug records are accepted and ignored: no stab entries are
		// emitted, with or without -g.
		return nil

	case ".debug_note":
		return nil

	case ".dump":
		return pseudoDump(as, rest)
	case ".load":
		return pseudoLoad(as, rest)

	case ".subsections_via_symbols":
		as.subsectionsViaSymbols = true
		return nil

	case ".machine":
		return nil // architecture is fixed for the whole run

	case ".inlineasmstart":
		loc2 := loc
		as.inlineAsmStart = &loc2
		return nil
	case ".inlineasmend":
		as.inlineAsmStart = nil
		return nil

	case ".incbin":
		return fmt.Errorf(".incbin is not supported by this assembler")

	case ".data_region", ".end_data_region":
		return nil

	case ".file":
		return pseudoFile(as, rest)
	case ".loc":
		return pseudoLoc(as, rest, loc)
	}
	return fmt.Errorf("unknown pseudo-op %q", name)
}

func pseudoAlign(as *Assembler, rest string, loc SourceLocation, byteUnits bool) error {
	parts := splitTopLevelComma(rest)
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return fmt.Errorf(".align requires an alignment argument")
	}
	n, _, err := GetAbsoluteExpression(parts[0], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	pow2 := int(n)
	if byteUnits {
		pow2 = log2Exact(int(n))
		if pow2 < 0 {
			return fmt.Errorf(".balign requires a power-of-two alignment")
		}
	}
	fill := []byte{0}
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		v, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		fill = []byte{byte(v)}
	} else if as.Sections.Current().SomeInstructions {
		fill = as.Backend.NopFill()
	}
	maxBytes := 0
	if len(parts) > 2 {
		v, _, err := GetAbsoluteExpression(parts[2], as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		maxBytes = int(v)
	}
	return fragAlign(as.Sections.Current(), pow2, fill, len(fill), maxBytes)
}

func pseudoAlignWidth(as *Assembler, rest string, loc SourceLocation, width int) error {
	n, remain, err := GetAbsoluteExpression(rest, as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	fill := make([]byte, width)
	remain = strings.TrimSpace(strings.TrimPrefix(remain, ","))
	if remain != "" {
		v, _, err := GetAbsoluteExpression(remain, as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		putBE(fill, uint64(v))
	}
	return fragAlign(as.Sections.Current(), int(n), fill, width, 0)
}

func pseudoBalignWidth(as *Assembler, rest string, loc SourceLocation, width int) error {
	n, _, err := GetAbsoluteExpression(rest, as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	pow2 := log2Exact(int(n))
	if pow2 < 0 {
		return fmt.Errorf(".balignw/.balignl require a power-of-two alignment")
	}
	fill := make([]byte, width)
	return fragAlign(as.Sections.Current(), pow2, fill, width, 0)
}

func log2Exact(n int) int {
	if n <= 0 || n&(n-1) != 0 {
		return -1
	}
	p := 0
	for n > 1 {
		n >>= 1
		p++
	}
	return p
}

func putBE(buf []byte, v uint64) {
	for i := range buf {
		buf[len(buf)-1-i] = byte(v >> (8 * i))
	}
}

func pseudoOrg(as *Assembler, rest string, loc SourceLocation) error {
	e, _, err := GetKnownSegmentedExpression(rest, as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	if e.Seg != SegSect && e.Seg != SegAbsolute {
		return fmt.Errorf(".org target must be absolute or in the current section")
	}
	fragOrg(as.Sections.Current(), e.AddSymbol, e.AddNumber)
	return nil
}

func pseudoSymbolFlag(as *Assembler, rest string, apply func(*Symbol)) error {
	for _, name := range splitTopLevelComma(rest) {
		name = stripSpace(name)
		if name == "" {
			continue
		}
		apply(as.Symtab.Lookup(name))
	}
	return nil
}

func pseudoIndirectSymbol(as *Assembler, rest string) error {
	sec := as.Sections.Current()
	for _, name := range splitTopLevelComma(rest) {
		name = stripSpace(name)
		if name == "" {
			continue
		}
		sec.Indirect = append(sec.Indirect, IndirectEntry{Name: name, Frag: sec.LastFrag, Offset: len(sec.LastFrag.Literal)})
	}
	return nil
}

func pseudoString(as *Assembler, rest string, zeroTerminate bool) error {
	sec := as.Sections.Current()
	for _, lit := range splitTopLevelComma(rest) {
		s, err := unquoteString(stripSpace(lit))
		if err != nil {
			return err
		}
		buf := fragMore(as, sec, len(s)+boolToInt(zeroTerminate))
		copy(buf, s)
		if zeroTerminate {
			buf[len(s)] = 0
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unquoteString(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("expected a quoted string")
	}
	s = s[1 : len(s)-1]
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			out.WriteByte(escapeByte(s[i]))
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String(), nil
}

func pseudoIntList(as *Assembler, rest string, loc SourceLocation, width int) error {
	sec := as.Sections.Current()
	for _, item := range splitTopLevelComma(rest) {
		item = stripSpace(item)
		if item == "" {
			continue
		}
		e, _, err := GetKnownSegmentedExpression(item, as.Symtab, sec)
		if err != nil {
			return err
		}
		buf := fragMore(as, sec, width)
		putWideBE(buf, e)
		if !as.Backend.BigEndian() {
			reverse(buf)
		}
		if e.Seg != SegAbsolute {
			// A relocatable/symbolic value only ever occupies the low 8
			// bytes; .octa's extra high-order bytes are a pure sign/zero
			// extension and are never themselves relocatable.
			fixWidth := width
			if fixWidth > 8 {
				fixWidth = 8
			}
			fixOff := len(sec.LastFrag.Literal) - fixWidth
			fixNew(sec.LastFrag, fixOff, fixWidth, e.AddSymbol, e.SubtractSymbol, e.AddNumber, false, true, RelocVanilla)
		}
	}
	return nil
}

// putWideBE writes e's integer value into buf in big-endian order. buf may
// be wider than 8 bytes for .octa: the low 8 bytes hold the 64-bit value,
// sign-extended into any remaining high-order bytes, unless e carries a
// bignum literal wide enough to supply its own high-order magnitude.
func putWideBE(buf []byte, e *Expr) {
	if e.Seg == SegBig && len(e.Bignum) > 0 {
		mag := e.Bignum
		if len(mag) > len(buf) {
			mag = mag[len(mag)-len(buf):]
		}
		copy(buf[len(buf)-len(mag):], mag)
		return
	}
	lo := buf
	if len(buf) > 8 {
		lo = buf[len(buf)-8:]
		fill := byte(0)
		if e.AddNumber < 0 {
			fill = 0xff
		}
		for i := range buf[:len(buf)-8] {
			buf[i] = fill
		}
	}
	putBE(lo, uint64(e.AddNumber))
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

func pseudoFloatList(as *Assembler, rest string, loc SourceLocation, width int) error {
	sec := as.Sections.Current()
	for _, item := range splitTopLevelComma(rest) {
		item = stripSpace(item)
		if item == "" {
			continue
		}
		v, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return fmt.Errorf("invalid floating-point literal %q", item)
		}
		buf := fragMore(as, sec, width)
		if width == 4 {
			bits := float32ToBits(float32(v))
			putBE(buf, uint64(bits))
		} else {
			putBE(buf, float64ToBits(v))
		}
		if !as.Backend.BigEndian() {
			reverse(buf)
		}
	}
	return nil
}

func pseudoComm(as *Assembler, rest string, loc SourceLocation, local bool) error {
	parts := splitTopLevelComma(rest)
	if len(parts) < 2 {
		return fmt.Errorf(".comm requires a name and a size")
	}
	name := stripSpace(parts[0])
	size, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	align := uint32(2)
	if len(parts) > 2 {
		a, _, err := GetAbsoluteExpression(parts[2], as.Symtab, as.Sections.Current())
		if err == nil {
			align = uint32(a)
		}
	}
	common, ok := as.Sections.Lookup("__DATA", "__common")
	if !ok {
		common = as.Sections.Section("__DATA", "__common", sZerofill, align)
	}
	as.Symtab.Colon(name, uint8(common.Nsect), common.LastFrag, int64(len(common.LastFrag.Literal)))
	buf := fragMore(as, common, int(size))
	_ = buf
	if !local {
		if sym, ok := as.Symtab.Find(name); ok {
			sym.SetExternal(true)
		}
	}
	return nil
}

func pseudoDesc(as *Assembler, rest string) error {
	parts := splitTopLevelComma(rest)
	if len(parts) != 2 {
		return fmt.Errorf(".desc requires a symbol and a value")
	}
	v, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	as.Symtab.Lookup(stripSpace(parts[0])).Desc = uint16(v)
	return nil
}

func pseudoFill(as *Assembler, rest string, loc SourceLocation) error {
	parts := splitTopLevelComma(rest)
	if len(parts) == 0 {
		return fmt.Errorf(".fill requires a repeat count")
	}
	count, _, err := GetAbsoluteExpression(parts[0], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	size := 1
	if len(parts) > 1 {
		v, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		size = int(v)
	}
	pattern := make([]byte, size)
	if len(parts) > 2 {
		v, _, err := GetAbsoluteExpression(parts[2], as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		putBE(pattern, uint64(v))
	}
	return fragFillDirective(as.Sections.Current(), int(count), size, pattern)
}

func pseudoLsym(as *Assembler, rest string, loc SourceLocation) error {
	parts := splitTopLevelComma(rest)
	if len(parts) != 2 {
		return fmt.Errorf(".lsym requires a name and a value")
	}
	v, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	_, err = as.Symtab.DefineAbsolute(stripSpace(parts[0]), uint64(v))
	return err
}

func pseudoSection(as *Assembler, rest string) error {
	parts := splitTopLevelComma(rest)
	if len(parts) < 2 {
		return fmt.Errorf(".section requires segname,sectname")
	}
	segname := stripSpace(parts[0])
	sectname := stripSpace(parts[1])
	flags := uint32(sRegular)
	align := uint32(2)
	for _, attr := range parts[2:] {
		switch stripSpace(attr) {
		case "regular":
			flags = sRegular
		case "cstring_literals", "literal_pointers", "literal4", "literal8":
			flags = sRegular
		}
	}
	as.Sections.SetCurrent(as.Sections.Section(segname, sectname, flags, align))
	return nil
}

func pseudoZerofill(as *Assembler, rest string, loc SourceLocation) error {
	parts := splitTopLevelComma(rest)
	if len(parts) < 4 {
		return fmt.Errorf(".zerofill requires segname,sectname,symbol,size")
	}
	segname, sectname := stripSpace(parts[0]), stripSpace(parts[1])
	name := stripSpace(parts[2])
	size, _, err := GetAbsoluteExpression(parts[3], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	align := uint32(2)
	if len(parts) > 4 {
		a, _, err := GetAbsoluteExpression(parts[4], as.Symtab, as.Sections.Current())
		if err == nil {
			align = uint32(a)
		}
	}
	sec, ok := as.Sections.Lookup(segname, sectname)
	if !ok {
		sec = as.Sections.Section(segname, sectname, sZerofill, align)
	}
	if _, err := as.Symtab.Colon(name, uint8(sec.Nsect), sec.LastFrag, int64(len(sec.LastFrag.Literal))); err != nil {
		return err
	}
	fragMore(as, sec, int(size))
	return nil
}

func pseudoSet(as *Assembler, rest string) error {
	parts := splitTopLevelComma(rest)
	if len(parts) != 2 {
		return fmt.Errorf(".set requires a symbol and a value")
	}
	e, _, err := GetKnownSegmentedExpression(parts[1], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	name := stripSpace(parts[0])
	if e.Seg == SegAbsolute {
		as.Symtab.Redefine(name, uint64(e.AddNumber))
		return nil
	}
	return fmt.Errorf(".set requires an absolute expression")
}

func pseudoSpace(as *Assembler, rest string, loc SourceLocation) error {
	parts := splitTopLevelComma(rest)
	count, _, err := GetAbsoluteExpression(parts[0], as.Symtab, as.Sections.Current())
	if err != nil {
		return err
	}
	fill := byte(0)
	if len(parts) > 1 {
		v, _, err := GetAbsoluteExpression(parts[1], as.Symtab, as.Sections.Current())
		if err != nil {
			return err
		}
		fill = byte(v)
	}
	return fragFillDirective(as.Sections.Current(), int(count), 1, []byte{fill})
}

func pseudoLeb128(as *Assembler, rest string, loc SourceLocation, signed bool) error {
	sec := as.Sections.Current()
	for _, item := range splitTopLevelComma(rest) {
		item = stripSpace(item)
		if item == "" {
			continue
		}
		e, _, err := GetKnownSegmentedExpression(item, as.Symtab, sec)
		if err != nil {
			return err
		}
		if e.Seg != SegAbsolute {
			return fmt.Errorf(".sleb128/.uleb128 require a constant expression")
		}
		lit := fragVar(sec, FragLeb128, 10, 0, boolToInt(signed), nil, e.AddNumber)
		_ = lit
	}
	return nil
}

func pseudoDump(as *Assembler, rest string) error {
	path := stripSpace(rest)
	path = strings.Trim(path, "\"")
	return DumpMacrosAndAbsolutes(path, as.Macros, as.Symtab)
}

func pseudoLoad(as *Assembler, rest string) error {
	path := stripSpace(rest)
	path = strings.Trim(path, "\"")
	_, err := LoadMacrosAndAbsolutes(path, as.Macros, as.Symtab)
	return err
}

func pseudoFile(as *Assembler, rest string) error {
	parts := strings.Fields(rest)
	if len(parts) < 2 {
		return fmt.Errorf(".file requires an index and a quoted path")
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid .file index %q", parts[0])
	}
	path, err := unquoteString(strings.TrimSpace(strings.Join(parts[1:], " ")))
	if err != nil {
		return err
	}
	return as.Dwarf.RegisterFile(n, path)
}

func pseudoLoc(as *Assembler, rest string, loc SourceLocation) error {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return fmt.Errorf(".loc requires a file index and a line number")
	}
	file, err := strconv.Atoi(fields[0])
	if err != nil {
		return err
	}
	line, err := strconv.Atoi(fields[1])
	if err != nil {
		return err
	}
	pos := DwarfLinePos{File: file, Line: line, IsStmt: true}
	if len(fields) > 2 {
		if col, err := strconv.Atoi(fields[2]); err == nil {
			pos.Column = col
		}
	}
	as.Dwarf.SetLoc(pos)
	return nil
}

func float32ToBits(f float32) uint32 { return math.Float32bits(f) }

func float64ToBits(f float64) uint64 { return math.Float64bits(f) }
