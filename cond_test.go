package main

import "testing"

func TestCondStackIfElseEndif(t *testing.T) {
	cs := newCondStack()
	if err := cs.If(false); err != nil {
		t.Fatalf("If: %v", err)
	}
	if !cs.Ignoring() {
		t.Fatalf("a false .if must start ignoring")
	}
	if err := cs.Else(); err != nil {
		t.Fatalf("Else: %v", err)
	}
	if cs.Ignoring() {
		t.Fatalf(".else after a false .if must stop ignoring")
	}
	if err := cs.Endif(); err != nil {
		t.Fatalf("Endif: %v", err)
	}
	if cs.Depth() != 0 {
		t.Fatalf("Depth after matching Endif = %d, want 0", cs.Depth())
	}
}

func TestCondStackElseifChainTakesFirstTrueBranch(t *testing.T) {
	cs := newCondStack()
	if err := cs.If(false); err != nil {
		t.Fatalf("If: %v", err)
	}
	if err := cs.Elseif(true); err != nil {
		t.Fatalf("Elseif: %v", err)
	}
	if cs.Ignoring() {
		t.Fatalf("the first true .elseif branch must not be ignored")
	}
	if err := cs.Elseif(true); err != nil {
		t.Fatalf("second Elseif: %v", err)
	}
	if !cs.Ignoring() {
		t.Fatalf("a later .elseif after one already taken must be ignored even if its own condition is true")
	}
}

func TestCondStackNestedIgnoringPropagates(t *testing.T) {
	cs := newCondStack()
	if err := cs.If(false); err != nil {
		t.Fatalf("outer If: %v", err)
	}
	if err := cs.If(true); err != nil {
		t.Fatalf("inner If: %v", err)
	}
	if !cs.Ignoring() {
		t.Fatalf("a nested true .if under an ignored outer frame must still be ignored")
	}
}

func TestCondStackUnmatchedDirectives(t *testing.T) {
	cs := newCondStack()
	if err := cs.Else(); err == nil {
		t.Fatalf(".else with no open .if must be an error")
	}
	if err := cs.Elseif(true); err == nil {
		t.Fatalf(".elseif with no open .if must be an error")
	}
	if err := cs.Endif(); err == nil {
		t.Fatalf(".endif with no open .if must be an error")
	}
}

func TestCondStackDepthLimit(t *testing.T) {
	cs := newCondStack()
	for i := 0; i < maxCondDepth; i++ {
		if err := cs.If(true); err != nil {
			t.Fatalf("If at depth %d: %v", i, err)
		}
	}
	if err := cs.If(true); err == nil {
		t.Fatalf("exceeding maxCondDepth must be an error")
	}
}
