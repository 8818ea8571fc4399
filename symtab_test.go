package main

import "testing"

func TestSymbolTableLookupCreatesUndefined(t *testing.T) {
	st := newSymbolTable()
	sym := st.Lookup("foo")
	if sym.Defined() {
		t.Fatalf("a freshly looked-up symbol must be undefined")
	}
	if sym2 := st.Lookup("foo"); sym2 != sym {
		t.Fatalf("a second Lookup of the same name must return the same symbol")
	}
}

func TestSymbolTableColonDefinesOnce(t *testing.T) {
	st := newSymbolTable()
	sec := newSection("__TEXT", "__text", 0, 0, 1)
	sym, err := st.Colon("foo", uint8(sec.Nsect), sec.RootFrag, 12)
	if err != nil {
		t.Fatalf("Colon: %v", err)
	}
	if !sym.Defined() || !sym.IsSection() {
		t.Fatalf("Colon must leave the symbol defined and section-relative")
	}
	if sym.Offset != 12 {
		t.Fatalf("Offset = %d, want 12", sym.Offset)
	}
	if _, err := st.Colon("foo", uint8(sec.Nsect), sec.RootFrag, 20); err == nil {
		t.Fatalf("redefining an already-defined symbol must be an error")
	}
}

func TestSymbolTableDefineAbsolute(t *testing.T) {
	st := newSymbolTable()
	sym, err := st.DefineAbsolute("VERSION", 3)
	if err != nil {
		t.Fatalf("DefineAbsolute: %v", err)
	}
	if !sym.IsAbsolute() {
		t.Fatalf("DefineAbsolute must produce an N_ABS symbol")
	}
	if sym.Value != 3 {
		t.Fatalf("Value = %d, want 3", sym.Value)
	}
}

func TestSymbolTableRedefineOverwrites(t *testing.T) {
	st := newSymbolTable()
	st.Redefine("COUNT", 1)
	sym := st.Redefine("COUNT", 2)
	if sym.Value != 2 {
		t.Fatalf("Value after second Redefine = %d, want 2", sym.Value)
	}
	if len(st.DefOrder(true)) != 1 {
		t.Fatalf("Redefine of the same name must not add a second DefOrder entry")
	}
}

func TestSymbolTableDefOrderFiltersLocals(t *testing.T) {
	st := newSymbolTable()
	sec := newSection("__TEXT", "__text", 0, 0, 1)
	if _, err := st.Colon("main", uint8(sec.Nsect), sec.RootFrag, 0); err != nil {
		t.Fatalf("Colon main: %v", err)
	}
	if _, err := st.LocalColon(1, uint8(sec.Nsect), sec.RootFrag, 4); err != nil {
		t.Fatalf("LocalColon: %v", err)
	}
	st.TempNew(uint8(sec.Nsect), sec.RootFrag, 8)

	withoutLocals := st.DefOrder(false)
	if len(withoutLocals) != 1 || withoutLocals[0].Name != "main" {
		t.Fatalf("DefOrder(false) = %v, want just [main]", withoutLocals)
	}

	withLocals := st.DefOrder(true)
	if len(withLocals) != 2 {
		t.Fatalf("DefOrder(true) = %v, want main plus the local label (temp anchors stay excluded)", withLocals)
	}
}

func TestSymbolExternalAndPrivateExternBits(t *testing.T) {
	sym := &Symbol{}
	sym.SetExternal(true)
	if !sym.External() {
		t.Fatalf("SetExternal(true) must set External()")
	}
	sym.SetPrivateExtern(true)
	if !sym.Private() || !sym.External() {
		t.Fatalf("SetPrivateExtern must not clear the external bit")
	}
	sym.SetExternal(false)
	if sym.External() {
		t.Fatalf("SetExternal(false) must clear External()")
	}
}
