package main

import (
	"path/filepath"
	"testing"
)

func TestDumpLoadRoundTripsMacrosAndAbsolutes(t *testing.T) {
	macros := newMacroTable()
	if err := macros.Define("double", []string{"addi $0, $0, $0", "nop"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	syms := newSymbolTable()
	if _, err := syms.DefineAbsolute("VERSION", 7); err != nil {
		t.Fatalf("DefineAbsolute: %v", err)
	}

	path := filepath.Join(t.TempDir(), "state.dump")
	if err := DumpMacrosAndAbsolutes(path, macros, syms); err != nil {
		t.Fatalf("DumpMacrosAndAbsolutes: %v", err)
	}

	loadMacros := newMacroTable()
	loadSyms := newSymbolTable()
	warnings, err := LoadMacrosAndAbsolutes(path, loadMacros, loadSyms)
	if err != nil {
		t.Fatalf("LoadMacrosAndAbsolutes: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings on a fresh load: %v", warnings)
	}

	m, ok := loadMacros.Lookup("double")
	if !ok {
		t.Fatalf("macro %q missing after round trip", "double")
	}
	if len(m.Body) != 2 || m.Body[0] != "addi $0, $0, $0" || m.Body[1] != "nop" {
		t.Fatalf("macro body after round trip = %v", m.Body)
	}

	sym, ok := loadSyms.Find("VERSION")
	if !ok || !sym.IsAbsolute() || sym.Value != 7 {
		t.Fatalf("symbol VERSION after round trip = %+v, ok=%v", sym, ok)
	}
}

func TestLoadWarnsOnMacroRedefinition(t *testing.T) {
	macros := newMacroTable()
	if err := macros.Define("m", []string{"nop"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	syms := newSymbolTable()
	path := filepath.Join(t.TempDir(), "state.dump")
	if err := DumpMacrosAndAbsolutes(path, macros, syms); err != nil {
		t.Fatalf("DumpMacrosAndAbsolutes: %v", err)
	}

	existing := newMacroTable()
	if err := existing.Define("m", []string{"nop", "nop"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	warnings, err := LoadMacrosAndAbsolutes(path, existing, newSymbolTable())
	if err != nil {
		t.Fatalf("LoadMacrosAndAbsolutes: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one redefinition warning", warnings)
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a\nb\nc\n", []string{"a", "b", "c"}},
		{"a\nb", []string{"a", "b"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitLines(c.in)
		if len(got) != len(c.want) {
			t.Errorf("splitLines(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("splitLines(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}
