package main

import "testing"

func assembleOne(t *testing.T, mnemonic, operands string) []byte {
	t.Helper()
	as := newTestAssembler()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	sec := as.Sections.Section("__TEXT", "__text", sAttrSomeInstructions|sAttrPureInstructions, 2)
	as.Sections.SetCurrent(sec)
	b := newPPCBackend(DefaultOptions())
	if err := b.Assemble(as, mnemonic, operands, SourceLocation{File: "t.s", LogicalLine: 1}); err != nil {
		t.Fatalf("Assemble(%q, %q): %v", mnemonic, operands, err)
	}
	return sec.LastFrag.Literal
}

func TestPPCAssembleNop(t *testing.T) {
	got := assembleOne(t, "nop", "")
	want := []byte{0x60, 0x00, 0x00, 0x00} // ori r0,r0,0
	if len(got) != 4 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] || got[3] != want[3] {
		t.Fatalf("nop encoding = % x, want % x", got, want)
	}
}

func TestPPCAssembleAddiImmediate(t *testing.T) {
	got := assembleOne(t, "addi", "r3,r4,100")
	if len(got) != 4 {
		t.Fatalf("addi emitted %d bytes, want 4", len(got))
	}
	word := uint32(got[0])<<24 | uint32(got[1])<<16 | uint32(got[2])<<8 | uint32(got[3])
	wantOp := uint32(14) << 26
	wantRt := uint32(3) << 21
	wantRa := uint32(4) << 16
	wantImm := uint32(100)
	if word != wantOp|wantRt|wantRa|wantImm {
		t.Fatalf("addi r3,r4,100 encoded as %#08x, want %#08x", word, wantOp|wantRt|wantRa|wantImm)
	}
}

func TestPPCAssembleUnknownMnemonic(t *testing.T) {
	as := newTestAssembler()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	sec := as.Sections.Section("__TEXT", "__text", 0, 2)
	as.Sections.SetCurrent(sec)
	b := newPPCBackend(DefaultOptions())
	if err := b.Assemble(as, "notreal", "", SourceLocation{}); err == nil {
		t.Fatalf("expected an error for an unrecognized mnemonic")
	}
}

func TestPPCAssembleWrongArgCount(t *testing.T) {
	as := newTestAssembler()
	as.Symtab = newSymbolTable()
	as.Sections = newSectionTable()
	sec := as.Sections.Section("__TEXT", "__text", 0, 2)
	as.Sections.SetCurrent(sec)
	b := newPPCBackend(DefaultOptions())
	if err := b.Assemble(as, "addi", "r3,r4", SourceLocation{}); err == nil {
		t.Fatalf("expected an error when addi is given too few operands")
	}
}

func TestPPCNopFillIsOriR0R0Zero(t *testing.T) {
	b := newPPCBackend(DefaultOptions())
	got := b.NopFill()
	want := []byte{0x60, 0x00, 0x00, 0x00}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("NopFill() = % x, want % x", got, want)
		}
	}
}

func TestPPCGregPseudoOp(t *testing.T) {
	as := newTestAssembler()
	as.Symtab = newSymbolTable()
	b := newPPCBackend(DefaultOptions())
	handled, err := b.PseudoOp(as, ".greg", "myreg, 5", SourceLocation{})
	if !handled {
		t.Fatalf(".greg must be handled by the PPC backend")
	}
	if err != nil {
		t.Fatalf(".greg: %v", err)
	}
	sym, ok := as.Symtab.Find("myreg")
	if !ok || !sym.IsAbsolute() || sym.Value != 5 {
		t.Fatalf("myreg after .greg = %+v, ok=%v, want absolute value 5", sym, ok)
	}
}
