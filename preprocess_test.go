package main

import "testing"

func TestPreprocessLineStripsCommentAndCollapsesSpace(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  lwz  r3,  0(r4)  ; load it", "lwz r3, 0(r4)"},
		{"nop", "nop"},
		{"; only a comment", ""},
		{"addi r3,r3,1\t\t; inc", "addi r3,r3,1"},
	}
	for _, c := range cases {
		if got := PreprocessLine(c.in, ';'); got != c.want {
			t.Errorf("PreprocessLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPreprocessLineLeavesStringLiteralsAlone(t *testing.T) {
	in := `.ascii "a;b  c"`
	want := `.ascii "a;b  c"`
	if got := PreprocessLine(in, ';'); got != want {
		t.Errorf("PreprocessLine(%q) = %q, want %q", in, got, want)
	}
}

func TestPreprocessLineCharLiteralSemicolonNotAComment(t *testing.T) {
	in := `cmpwi r3, ';'`
	want := `cmpwi r3, ';'`
	if got := PreprocessLine(in, ';'); got != want {
		t.Errorf("PreprocessLine(%q) = %q, want %q", in, got, want)
	}
}

func TestParseLineMarker(t *testing.T) {
	m, ok := ParseLineMarker(`# 12 "foo.s"`)
	if !ok {
		t.Fatalf("expected ParseLineMarker to recognize a GNU line marker")
	}
	if m.Line != 12 || m.File != "foo.s" {
		t.Errorf("ParseLineMarker = %+v, want {Line:12 File:foo.s}", m)
	}

	if _, ok := ParseLineMarker("# this is not a line marker"); ok {
		t.Errorf("a '#' comment with no leading digits must not parse as a line marker")
	}

	m2, ok := ParseLineMarker("# 5")
	if !ok || m2.Line != 5 || m2.File != "" {
		t.Errorf("ParseLineMarker(# 5) = %+v, ok=%v, want {Line:5} true", m2, ok)
	}
}
