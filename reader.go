package main

import (
	"fmt"
	"os"
	"strings"
)

// macroFrame is one in-flight macro expansion: the substituted body lines
// still to be fed back through the reader, and the invocation site every
// line in it is attributed to for diagnostics.
type macroFrame struct {
	lines []string
	loc   SourceLocation
}

// Reader drives the statement-at-a-time loop: pull a logical line (from
// the include stack, or from an in-flight macro expansion), preprocess
// it, then dispatch on its leading token.
type Reader struct {
	as     *Assembler
	scrub  *Scrubber
	frames []*macroFrame
}

func newReader(as *Assembler) *Reader {
	return &Reader{as: as, scrub: newScrubber(as)}
}

// ReadSource feeds one translation unit through the reader to completion.
func (r *Reader) ReadSource(src SourceInput) error {
	if src.Name == "-" {
		if err := r.scrub.pushStdin(os.Stdin); err != nil {
			return fmt.Errorf("cannot read standard input: %w", err)
		}
	} else {
		content, err := src.Reader()
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", src.Name, err)
		}
		r.scrub.pushString(src.Name, content)
	}

	var lastLoc SourceLocation
	for {
		line, loc, ok := r.nextLine()
		if !ok {
			break
		}
		lastLoc = loc
		r.as.currentFile = loc.File
		r.as.currentLine = loc.LogicalLine
		r.dispatchLine(line, loc)
	}
	if depth := r.as.Cond.Depth(); depth != 0 {
		r.as.Diag.Bad(lastLoc, "%d .if block(s) still open at end of file", depth)
	}
	return nil
}

func (r *Reader) nextLine() (string, SourceLocation, bool) {
	for len(r.frames) > 0 {
		f := r.frames[len(r.frames)-1]
		if len(f.lines) == 0 {
			r.as.Macros.Leave()
			r.frames = r.frames[:len(r.frames)-1]
			continue
		}
		line := f.lines[0]
		f.lines = f.lines[1:]
		return line, f.loc, true
	}
	return r.scrub.NextLogicalLine()
}

// dispatchLine implements statement grammar: leading digit-run
// immediately followed by ':' is a local label; an identifier followed by
// ':' (optionally after a label) defines a global label; an identifier
// followed by '=' is an absolute assignment; and otherwise the leading
// token names a pseudo-op, a macro invocation, or a backend mnemonic.
func (r *Reader) dispatchLine(raw string, loc SourceLocation) {
	if marker, ok := ParseLineMarker(raw); ok {
		r.as.currentLine = marker.Line
		if marker.File != "" {
			r.as.currentFile = marker.File
		}
		return
	}

	line := PreprocessLine(raw, r.as.Backend.CommentChar())
	if line == "" {
		return
	}

	// .if/.elseif/.else/.endif are tracked even while an enclosing branch
	// is being ignored, since CondStack.If must still push a (suppressed)
	// frame to keep nesting balanced; every other statement in an ignored
	// branch -- including label definitions -- is skipped outright.
	if firstWord, condRest := splitMnemonic(line); firstWord == ".if" || firstWord == ".elseif" || firstWord == ".else" || firstWord == ".endif" {
		r.dispatchCond(firstWord, condRest, loc)
		return
	}
	if r.as.Cond.Ignoring() {
		return
	}

	// A label (global or local) may prefix the rest of the statement; peel
	// off as many as appear before deciding what kind of statement follows.
	for {
		if n, rest, ok := parseLocalLabelDef(line); ok {
			if _, err := r.as.Symtab.LocalColon(n, curSect(r.as), curFrag(r.as), curOffset(r.as)); err != nil {
				r.as.Diag.Bad(loc, "%v", err)
			}
			line = strings.TrimSpace(rest)
			continue
		}
		if name, rest, ok := parseGlobalLabelDef(line); ok {
			if _, err := r.as.Symtab.Colon(name, uint8(curSect(r.as).Nsect), curFrag(r.as), curOffset(r.as)); err != nil {
				r.as.Diag.Bad(loc, "%v", err)
				if r.as.inlineAsmStart != nil {
					r.as.Diag.WarnAt(r.as.inlineAsmStart.File, r.as.inlineAsmStart.LogicalLine, 0,
						"label redefinition originates from this inline-asm block")
				}
			}
			line = strings.TrimSpace(rest)
			continue
		}
		break
	}
	if line == "" {
		return
	}

	if name, expr, ok := parseAssignment(line); ok {
		e, _, err := GetKnownSegmentedExpression(expr, r.as.Symtab, r.as.Sections.Current())
		if err != nil {
			r.as.Diag.Bad(loc, "%v", err)
			return
		}
		if e.Seg != SegAbsolute {
			r.as.Diag.Bad(loc, "%q =... requires an absolute expression", name)
			return
		}
		r.as.Symtab.Redefine(name, uint64(e.AddNumber))
		return
	}

	name, rest := splitMnemonic(line)

	if name == ".macro" {
		r.captureMacro(rest, loc)
		return
	}
	if name == ".endmacro" || name == ".endm" {
		r.as.Diag.Bad(loc, "%s without matching .macro", name)
		return
	}

	if name == ".include" {
		if err := handleInclude(r.scrub, rest); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
		return
	}
	if name == ".macros_on" {
		r.as.macrosEnabled = true
		return
	}
	if name == ".macros_off" {
		r.as.macrosEnabled = false
		return
	}

	if r.as.macrosEnabled {
		if m, ok := r.as.Macros.Lookup(name); ok {
			args := parseMacroArgs(rest)
			expansion, err := r.as.Macros.Expand(m, args)
			if err != nil {
				r.as.Diag.Bad(loc, "%v", err)
				return
			}
			r.frames = append(r.frames, &macroFrame{lines: splitLines(expansion), loc: loc})
			return
		}
	}

	if strings.HasPrefix(name, ".") {
		if ok, err := r.as.Backend.PseudoOp(r.as, name, rest, loc); ok {
			if err != nil {
				r.as.Diag.Bad(loc, "%v", err)
			}
			return
		}
		if err := dispatchPseudoOp(r.as, name, rest, loc); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
		return
	}

	if err := r.as.Backend.Assemble(r.as, name, rest, loc); err != nil {
		r.as.Diag.Bad(loc, "%v", err)
	}
}

// captureMacro reads raw scrubber lines verbatim until a
// `.endmacro`/`.endm` line, then registers the macro.
func (r *Reader) captureMacro(rest string, loc SourceLocation) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		r.as.Diag.Bad(loc, ".macro requires a name")
		return
	}
	name := fields[0]
	var body []string
	for {
		line, _, ok := r.nextLine()
		if !ok {
			r.as.Diag.Bad(loc, ".macro %q missing .endmacro", name)
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == ".endmacro" || trimmed == ".endm" {
			break
		}
		body = append(body, line)
	}
	if err := r.as.Macros.Define(name, body); err != nil {
		r.as.Diag.Bad(loc, "%v", err)
	}
}

// dispatchCond handles one of .if/.elseif/.else/.endif; the condition
// expression is only evaluated (and any parse error reported) when the
// enclosing frame is not itself being ignored, since an ignored branch's
// condition text may reference symbols that never get defined.
func (r *Reader) dispatchCond(name, rest string, loc SourceLocation) {
	switch name {
	case ".if":
		ignored := r.as.Cond.Ignoring()
		n, _, err := GetAbsoluteExpression(rest, r.as.Symtab, r.as.Sections.Current())
		if err != nil && !ignored {
			r.as.Diag.Bad(loc, "%v", err)
		}
		if err := r.as.Cond.If(err == nil && n != 0); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
	case ".elseif":
		ignored := r.as.Cond.Ignoring()
		n, _, err := GetAbsoluteExpression(rest, r.as.Symtab, r.as.Sections.Current())
		if err != nil && !ignored {
			r.as.Diag.Bad(loc, "%v", err)
		}
		if err := r.as.Cond.Elseif(err == nil && n != 0); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
	case ".else":
		if err := r.as.Cond.Else(); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
	case ".endif":
		if err := r.as.Cond.Endif(); err != nil {
			r.as.Diag.Bad(loc, "%v", err)
		}
	}
}

func curSect(as *Assembler) *Section { return as.Sections.Current() }
func curFrag(as *Assembler) *Frag    { return as.Sections.Current().LastFrag }
func curOffset(as *Assembler) int64  { return int64(len(as.Sections.Current().LastFrag.Literal)) }

// parseLocalLabelDef recognizes a leading "N:" local-label definition
//, a digit run immediately followed by ':' with no intervening
// identifier characters.
func parseLocalLabelDef(line string) (n int32, rest string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != ':' {
		return 0, "", false
	}
	var val int64
	for _, ch := range line[:i] {
		val = val*10 + int64(ch-'0')
	}
	return int32(val), line[i+1:], true
}

// parseGlobalLabelDef recognizes a leading "name:" label definition.
func parseGlobalLabelDef(line string) (name, rest string, ok bool) {
	i := 0
	if i >= len(line) || !isIdentStart(line[i]) {
		return "", "", false
	}
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	if i >= len(line) || line[i] != ':' {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

// parseAssignment recognizes a leading "name = expr" statement.
func parseAssignment(line string) (name, expr string, ok bool) {
	i := 0
	if i >= len(line) || !isIdentStart(line[i]) {
		return "", "", false
	}
	for i < len(line) && isIdentChar(line[i]) {
		i++
	}
	name = line[:i]
	j := i
	for j < len(line) && (line[j] == ' ' || line[j] == '\t') {
		j++
	}
	if j >= len(line) || line[j] != '=' {
		return "", "", false
	}
	return name, line[j+1:], true
}

// splitMnemonic separates a statement's leading token (pseudo-op name or
// instruction mnemonic) from its operand text.
func splitMnemonic(line string) (name, rest string) {
	i := 0
	for i < len(line) && line[i] != ' ' && line[i] != '\t' {
		i++
	}
	name = line[:i]
	rest = strings.TrimSpace(line[i:])
	return name, rest
}
