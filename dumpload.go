package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// DumpMacrosAndAbsolutes implements `.dump "path"`: a
// NUL-terminated (name, body) pair per macro, a lone NUL terminator, then a
// (name, little-endian-4-byte-value) pair per absolute symbol, then a final
// NUL.
func DumpMacrosAndAbsolutes(path string, macros *MacroTable, syms *SymbolTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create dump file %q: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	for _, m := range macros.byName {
		if err := writeNulString(w, m.Name); err != nil {
			return err
		}
		body := ""
		for _, line := range m.Body {
			body += line + "\n"
		}
		if err := writeNulString(w, body); err != nil {
			return err
		}
	}
	if err := w.WriteByte(0); err != nil {
		return err
	}

	for _, sym := range syms.chain {
		if !sym.defined || sym.Type&NTypeMask != NTypeAbs {
			continue
		}
		if err := writeNulString(w, sym.Name); err != nil {
			return err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(sym.Value))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	if err := w.WriteByte(0); err != nil {
		return err
	}
	return w.Flush()
}

func writeNulString(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte(0)
}

// LoadMacrosAndAbsolutes implements `.load "path"`: macros are inserted
// (warn on duplicates via the returned warnings slice), absolute symbols are
// defined and flagged stripped so the object writer does not re-emit them.
func LoadMacrosAndAbsolutes(path string, macros *MacroTable, syms *SymbolTable) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read dump file %q: %w", path, err)
	}
	var warnings []string
	pos := 0

	readNulString := func() (string, bool) {
		start := pos
		for pos < len(data) && data[pos] != 0 {
			pos++
		}
		if pos >= len(data) {
			return "", false
		}
		s := string(data[start:pos])
		pos++ // skip NUL
		return s, true
	}

	for pos < len(data) && data[pos] != 0 {
		name, ok := readNulString()
		if !ok {
			return warnings, fmt.Errorf("truncated dump file %q", path)
		}
		body, ok := readNulString()
		if !ok {
			return warnings, fmt.Errorf("truncated dump file %q", path)
		}
		if _, exists := macros.byName[name]; exists {
			warnings = append(warnings, fmt.Sprintf("macro %q redefined by .load", name))
		}
		macros.byName[name] = &Macro{Name: name, Body: splitLines(body)}
	}
	if pos < len(data) {
		pos++ // skip the macro-section terminator NUL
	}

	for pos < len(data) && data[pos] != 0 {
		name, ok := readNulString()
		if !ok {
			return warnings, fmt.Errorf("truncated dump file %q", path)
		}
		if pos+4 > len(data) {
			return warnings, fmt.Errorf("truncated dump file %q", path)
		}
		value := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		sym, err := syms.DefineAbsolute(name, uint64(value))
		if err != nil {
			syms.Redefine(name, uint64(value))
			sym, _ = syms.Find(name)
		}
		if sym != nil {
			sym.stripped = true
		}
	}
	return warnings, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
