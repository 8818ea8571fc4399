package main

import "testing"

func TestLocalLabelInstanceCounting(t *testing.T) {
	lls := newLocalLabelState()
	if got := lls.instance(1); got != 0 {
		t.Fatalf("instance(1) before any definition = %d, want 0", got)
	}
	lls.incInstance(1)
	if got := lls.instance(1); got != 1 {
		t.Fatalf("instance(1) after one definition = %d, want 1", got)
	}
	lls.incInstance(1)
	lls.incInstance(1)
	if got := lls.instance(1); got != 3 {
		t.Fatalf("instance(1) after three definitions = %d, want 3", got)
	}
}

func TestLocalLabelSparseBeyondSpecial(t *testing.T) {
	lls := newLocalLabelState()
	lls.incInstance(42)
	lls.incInstance(100)
	lls.incInstance(42)
	if got := lls.instance(42); got != 2 {
		t.Fatalf("instance(42) = %d, want 2", got)
	}
	if got := lls.instance(100); got != 1 {
		t.Fatalf("instance(100) = %d, want 1", got)
	}
	if got := lls.instance(7); got != 0 {
		t.Fatalf("instance(7) (never defined) = %d, want 0", got)
	}
}

func TestLocalColonAndReference(t *testing.T) {
	syms := newSymbolTable()
	sec := newSection("__TEXT", "__text", 0, 0, 1)

	fwd := syms.LocalReference(1, false) // "1f" before any "1:"
	if fwd.defined {
		t.Fatalf("forward reference to an undefined local label must not be defined yet")
	}

	def, err := syms.LocalColon(1, uint8(sec.Nsect), sec.RootFrag, 0)
	if err != nil {
		t.Fatalf("LocalColon: %v", err)
	}
	if def != fwd {
		t.Fatalf("the forward reference must resolve to the same symbol the definition later fills in")
	}

	back := syms.LocalReference(1, true) // "1b" after "1:"
	if back != def {
		t.Fatalf("backward reference after the definition must resolve to that same definition")
	}

	// A second "1:" creates a distinct instance with its own name.
	def2, err := syms.LocalColon(1, uint8(sec.Nsect), sec.RootFrag, 4)
	if err != nil {
		t.Fatalf("second LocalColon: %v", err)
	}
	if def2 == def {
		t.Fatalf("a second 1: must define a distinct symbol from the first")
	}
	if back2 := syms.LocalReference(1, true); back2 != def2 {
		t.Fatalf("1b after the second definition must resolve to the second definition")
	}
}

func TestIsLocalLabelName(t *testing.T) {
	lls := newLocalLabelState()
	name := lls.name(3, 1)
	if !isLocalLabelName(name) {
		t.Errorf("isLocalLabelName(%q) = false, want true", name)
	}
	for _, s := range []string{"foo", "L", "L1", "main", ""} {
		if isLocalLabelName(s) {
			t.Errorf("isLocalLabelName(%q) = true, want false", s)
		}
	}
}
