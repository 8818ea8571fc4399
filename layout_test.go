package main

import "testing"

func TestLayoutAssignsSequentialAddresses(t *testing.T) {
	as := newTestAssembler()
	as.Diag = NewDiagnostics()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	as.Backend = newPPCBackend(DefaultOptions())
	sec := as.Sections.Section("__TEXT", "__text", sAttrSomeInstructions|sAttrPureInstructions, 2)
	as.Sections.SetCurrent(sec)

	b := as.Backend.(*PPCBackend)
	for i := 0; i < 3; i++ {
		if err := b.Assemble(as, "nop", "", SourceLocation{File: "t.s", LogicalLine: i + 1}); err != nil {
			t.Fatalf("Assemble nop: %v", err)
		}
	}

	if err := LayoutAndRelax(as); err != nil {
		t.Fatalf("LayoutAndRelax: %v", err)
	}
	if sec.Size != 12 {
		t.Fatalf("section size = %d, want 12 (three 4-byte nops)", sec.Size)
	}

	var addrs []uint64
	for f := sec.RootFrag; f != nil; f = f.Next {
		for off := 0; off < len(f.FinalBytes); off += 4 {
			addrs = append(addrs, f.Address+uint64(off))
		}
	}
	for i, want := range []uint64{0, 4, 8} {
		if i >= len(addrs) || addrs[i] != want {
			t.Fatalf("instruction addresses = %v, want [0 4 8]", addrs)
		}
	}
}

func TestLayoutAlignPadsToBoundary(t *testing.T) {
	as := newTestAssembler()
	as.Diag = NewDiagnostics()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	as.Backend = newPPCBackend(DefaultOptions())
	sec := as.Sections.Section("__TEXT", "__text", sAttrSomeInstructions|sAttrPureInstructions, 2)
	as.Sections.SetCurrent(sec)

	b := as.Backend.(*PPCBackend)
	if err := b.Assemble(as, "nop", "", SourceLocation{File: "t.s", LogicalLine: 1}); err != nil {
		t.Fatalf("Assemble nop: %v", err)
	}
	if err := fragAlign(sec, 3, b.NopFill(), 4, 0); err != nil {
		t.Fatalf("fragAlign: %v", err)
	}
	if err := b.Assemble(as, "nop", "", SourceLocation{File: "t.s", LogicalLine: 2}); err != nil {
		t.Fatalf("Assemble nop: %v", err)
	}

	if err := LayoutAndRelax(as); err != nil {
		t.Fatalf("LayoutAndRelax: %v", err)
	}
	if sec.Size != 12 {
		t.Fatalf("section size = %d, want 12 (4 + 4 pad to an 8-byte boundary + 4)", sec.Size)
	}
}

func TestResolveFixDefinedAbsoluteSymbol(t *testing.T) {
	as := newTestAssembler()
	as.Diag = NewDiagnostics()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	as.Backend = newPPCBackend(DefaultOptions())
	sec := as.Sections.Section("__TEXT", "__text", 0, 2)
	as.Sections.SetCurrent(sec)

	if _, err := as.Symtab.DefineAbsolute("FOO", 0x1234); err != nil {
		t.Fatalf("DefineAbsolute: %v", err)
	}
	fragMore(as, sec, 4)
	f := sec.LastFrag
	sym, _ := as.Symtab.Find("FOO")
	fixNew(f, 0, 4, sym, nil, 0, false, false, RelocVanilla)

	if err := LayoutAndRelax(as); err != nil {
		t.Fatalf("LayoutAndRelax: %v", err)
	}
	got := uint32(f.FinalBytes[0])<<24 | uint32(f.FinalBytes[1])<<16 | uint32(f.FinalBytes[2])<<8 | uint32(f.FinalBytes[3])
	if got != 0x1234 {
		t.Fatalf("patched value = %#x, want %#x", got, 0x1234)
	}
}
