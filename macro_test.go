package main

import "testing"

func TestParseMacroArgsCommaAndSpaceSeparated(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a, b, c", []string{"a", "b", "c"}},
		{"a  b   c", []string{"a", "b", "c"}},
		{"f(a,b), c", []string{"f(a,b)", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := parseMacroArgs(c.in)
		if len(got) != len(c.want) {
			t.Errorf("parseMacroArgs(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("parseMacroArgs(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

func TestMacroTableDefineRejectsBuiltinName(t *testing.T) {
	mt := newMacroTable()
	if err := mt.Define(".if", nil); err == nil {
		t.Fatalf("defining a macro named after a built-in pseudo-op must be an error")
	}
}

func TestMacroTableDefineAndLookup(t *testing.T) {
	mt := newMacroTable()
	if err := mt.Define("double", []string{"addi $0, $0, $0"}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	m, ok := mt.Lookup("double")
	if !ok {
		t.Fatalf("Lookup(double) not found after Define")
	}
	if m.Name != "double" || len(m.Body) != 1 {
		t.Fatalf("Lookup(double) = %+v, want one-line body", m)
	}
}

func TestSubstituteMacroArgs(t *testing.T) {
	args := []string{"r3", "r4"}
	cases := []struct {
		line string
		want string
	}{
		{"add $0, $1", "add r3, r4"},
		{"mr $0, $0", "mr r3, r3"},
		{"# $n args", "# 2 args"},
		{"literal $$ sign", "literal $ sign"},
		{"missing $5 arg", "missing  arg"},
	}
	for _, c := range cases {
		if got := substituteMacroArgs(c.line, args); got != c.want {
			t.Errorf("substituteMacroArgs(%q) = %q, want %q", c.line, got, c.want)
		}
	}
}

func TestMacroTableExpandTracksDepth(t *testing.T) {
	mt := newMacroTable()
	m := &Macro{Name: "noop", Body: []string{"nop"}}
	for i := 0; i < maxMacroDepth; i++ {
		if _, err := mt.Expand(m, nil); err != nil {
			t.Fatalf("Expand at depth %d: %v", i, err)
		}
	}
	if _, err := mt.Expand(m, nil); err == nil {
		t.Fatalf("exceeding maxMacroDepth must be an error")
	}
	mt.Leave()
	if mt.depth != maxMacroDepth-1 {
		t.Fatalf("depth after one Leave = %d, want %d", mt.depth, maxMacroDepth-1)
	}
}
