package main

import "testing"

func newTestAssembler() *Assembler {
	return &Assembler{Arena: newArena(), Dwarf: newDwarfLineState(), Opts: DefaultOptions()}
}

func TestFragMoreGrowsCurrentFrag(t *testing.T) {
	as := newTestAssembler()
	sec := newSection("__TEXT", "__text", 0, 0, 1)

	b := fragMore(as, sec, 4)
	copy(b, []byte{0xde, 0xad, 0xbe, 0xef})
	if len(sec.LastFrag.Literal) != 4 {
		t.Fatalf("Literal length = %d, want 4", len(sec.LastFrag.Literal))
	}

	b2 := fragMore(as, sec, 2)
	copy(b2, []byte{0x01, 0x02})
	if len(sec.LastFrag.Literal) != 6 {
		t.Fatalf("Literal length after second grow = %d, want 6", len(sec.LastFrag.Literal))
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef, 0x01, 0x02}
	for i, v := range want {
		if sec.LastFrag.Literal[i] != v {
			t.Fatalf("Literal[%d] = %#x, want %#x", i, sec.LastFrag.Literal[i], v)
		}
	}
}

func TestFragVarClosesAndReopens(t *testing.T) {
	sec := newSection("__TEXT", "__text", 0, 0, 1)
	root := sec.LastFrag

	if err := fragAlign(sec, 2, []byte{0x00}, 1, 0); err != nil {
		t.Fatalf("fragAlign: %v", err)
	}
	if !root.closed {
		t.Fatalf("fragAlign must close the frag that was open before it")
	}
	if root.Next == nil || root.Next.Type != FragAlign {
		t.Fatalf("expected an align frag to follow the original root frag")
	}
	if sec.LastFrag.Type != FragFill || sec.LastFrag.closed {
		t.Fatalf("fragAlign must leave a fresh open fill frag as the section's current frag")
	}
}

func TestFragFillDirectiveRejectsOversizeWidth(t *testing.T) {
	sec := newSection("__TEXT", "__text", 0, 0, 1)
	if err := fragFillDirective(sec, 4, 9, []byte{0}); err == nil {
		t.Fatalf("a .fill width over 8 bytes must be rejected")
	}
}

func TestFragFillDirectiveCopiesPattern(t *testing.T) {
	sec := newSection("__TEXT", "__text", 0, 0, 1)
	if err := fragFillDirective(sec, 3, 2, []byte{0xab, 0xcd}); err != nil {
		t.Fatalf("fragFillDirective: %v", err)
	}
	f := sec.LastFrag.Next
	for f != nil && f.Type != FragFill {
		f = f.Next
	}
	var fillFrag *Frag
	for cur := sec.RootFrag; cur != nil; cur = cur.Next {
		if cur.Offset == 3 && cur.VarSize == 2 {
			fillFrag = cur
		}
	}
	if fillFrag == nil {
		t.Fatalf("did not find the .fill frag (count=3, size=2)")
	}
	if fillFrag.Literal[0] != 0xab || fillFrag.Literal[1] != 0xcd {
		t.Fatalf("Literal = %x, want ab cd", fillFrag.Literal)
	}
}

func TestFragTypeString(t *testing.T) {
	cases := map[FragType]string{
		FragFill:   "fill",
		FragAlign:  "align",
		FragOrg:    "org",
		FragLeb128: "leb128",
		FragDwarf2: "dwarf2dbg",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("FragType(%d).String() = %q, want %q", typ, got, want)
		}
	}
}
