package main

import "fmt"

// Mach-O nlist n_type bits. Kept here rather than in macho.go
// since the symbol table is built and mutated long before the object writer
// ever looks at these fields.
const (
	NTypeUndf = 0x0  // N_UNDF: no type, undefined
	NTypeAbs  = 0x2  // N_ABS: absolute symbol
	NTypeSect = 0xe  // N_SECT: defined in a numbered section
	NTypeMask = 0x0e // N_TYPE: mask for the three bits above
	NExt      = 0x01 // N_EXT: external (global) symbol
	NPext     = 0x10 // N_PEXT: private external

	NDescNoDeadStrip    = 0x0020
	NDescWeakRef        = 0x0040
	NDescWeakDef        = 0x0080
	NDescRefUndefLazy   = 0x0001
	NDescRefUndefNonLzy = 0x0000
	NDescSymbolResolver = 0x0100
)

// Symbol is a name's full record. Two orderings thread through every
// symbol ever referenced: SymbolTable.chain is insertion order (first
// reference), used for the name hash/global list; defIndex/the table's
// defOrder slice is the order symbols became *defined*, which is the order
// written to the Mach-O symbol table.
type Symbol struct {
	Name string

	Type  uint8 // n_type: NTypeUndf/NTypeAbs/NTypeSect, N_EXT/N_PEXT bits ORed in
	Sect  uint8 // n_sect: 1-based section ordinal, 0 (NO_SECT) until SECT-defined
	Desc  uint16
	Value uint64 // n_value for ABS symbols; for SECT symbols the object writer derives n_value from Frag.Address+Offset

	Frag   *Frag // defining frag, nil until colon()
	Offset int64 // byte offset within Frag

	// Expression holds an as-yet unresolvable two-section-difference
	// expression for the symbol's value. No code path sets it, and layout
	// does not consult it; Redefine clears it.
	Expression *Expr

	defined  bool
	defIndex int // position in SymbolTable.defOrder, -1 until colon()

	local    bool // true for arena-only temp symbols never entered in byName
	stripped bool // set by .load for absolute symbols the dump chose not to re-emit
}

func (s *Symbol) Defined() bool   { return s.defined }
func (s *Symbol) External() bool  { return s.Type&NExt != 0 }
func (s *Symbol) Private() bool   { return s.Type&NPext != 0 }
func (s *Symbol) IsAbsolute() bool { return s.defined && s.Type&NTypeMask == NTypeAbs }
func (s *Symbol) IsSection() bool  { return s.defined && s.Type&NTypeMask == NTypeSect }

func (s *Symbol) SetExternal(on bool) {
	if on {
		s.Type |= NExt
	} else {
		s.Type &^= NExt
	}
}

func (s *Symbol) SetPrivateExtern(on bool) {
	if on {
		s.Type |= NPext
	} else {
		s.Type &^= NPext
	}
}

// SymbolTable is the hashed name -> symbol store plus the two orderings
// described on Symbol: reference order and definition order.
type SymbolTable struct {
	byName  map[string]*Symbol
	chain   []*Symbol // insertion (first-reference) order
	defOrder []*Symbol // definition order == Mach-O symbol table order

	locals *LocalLabelState
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]*Symbol),
		locals: newLocalLabelState(),
	}
}

// Lookup returns the symbol for name, creating it as an undefined (N_UNDF)
// symbol on first reference.
func (st *SymbolTable) Lookup(name string) *Symbol {
	if sym, ok := st.byName[name]; ok {
		return sym
	}
	sym := &Symbol{Name: name, defIndex: -1}
	st.byName[name] = sym
	st.chain = append(st.chain, sym)
	return sym
}

// Find reports whether name has been referenced at all, without creating it.
func (st *SymbolTable) Find(name string) (*Symbol, bool) {
	sym, ok := st.byName[name]
	return sym, ok
}

// Colon defines name as a label at the current position: sec/frag/offset
// (colon("name")). Redefinition of an already-defined symbol is an
// error unless the prior state was "undefined, zero-valued, no flags other
// than reference-type bits" -- i.e. a plain forward reference with nothing
// else recorded against it yet.
func (st *SymbolTable) Colon(name string, sect uint8, frag *Frag, offset int64) (*Symbol, error) {
	sym := st.Lookup(name)
	if sym.defined {
		return nil, fmt.Errorf("symbol %q is already defined", name)
	}
	if sym.Type&^uint8(NExt|NPext) != 0 || sym.Value != 0 || sym.Frag != nil {
		return nil, fmt.Errorf("symbol %q is already defined", name)
	}
	sym.Type = (sym.Type &^ NTypeMask) | NTypeSect
	sym.Sect = sect
	sym.Frag = frag
	sym.Offset = offset
	sym.defined = true
	sym.defIndex = len(st.defOrder)
	st.defOrder = append(st.defOrder, sym)
	return sym, nil
}

// DefineAbsolute defines name with a fixed numeric value (N_ABS), used by
// `.lsym` and the .load restore path (`.set` and `name = expr` use Redefine).
func (st *SymbolTable) DefineAbsolute(name string, value uint64) (*Symbol, error) {
	sym := st.Lookup(name)
	if sym.defined {
		return nil, fmt.Errorf("symbol %q is already defined", name)
	}
	sym.Type = (sym.Type &^ NTypeMask) | NTypeAbs
	sym.Value = value
	sym.defined = true
	sym.defIndex = len(st.defOrder)
	st.defOrder = append(st.defOrder, sym)
	return sym, nil
}

// Redefine forcibly overwrites an absolute symbol's value, the behavior
// `name = expr` has on a second assignment to the same name (distinct from
// colon's one-shot label semantics).
func (st *SymbolTable) Redefine(name string, value uint64) *Symbol {
	sym := st.Lookup(name)
	sym.Type = (sym.Type &^ NTypeMask) | NTypeAbs
	sym.Value = value
	if !sym.defined {
		sym.defined = true
		sym.defIndex = len(st.defOrder)
		st.defOrder = append(st.defOrder, sym)
	}
	sym.Frag = nil
	sym.Expression = nil
	return sym
}

// TempNew creates an unnameable label bound to sect/frag/offset, used for internal anchors (e.g. the "." location
// counter in expressions) that never appear in the name table.
func (st *SymbolTable) TempNew(sect uint8, frag *Frag, offset int64) *Symbol {
	sym := &Symbol{
		Name:     fmt.Sprintf("L0\x02%d", len(st.chain)),
		Type:     NTypeSect,
		Sect:     sect,
		Frag:     frag,
		Offset:   offset,
		defined:  true,
		defIndex: len(st.defOrder),
		local:    true,
	}
	st.defOrder = append(st.defOrder, sym)
	return sym
}

// TempMake creates an undefined placeholder symbol used purely as an
// expression subtree anchor, never entered in the name table and never
// emitted.
func (st *SymbolTable) TempMake() *Symbol {
	return &Symbol{Name: "L0\x02anon", defIndex: -1, local: true}
}

// DefOrder returns every defined symbol in definition order, the order the
// Mach-O symbol table is written in. When keepLocals is false,
// "L..." temporary labels are dropped unless -L was given on the command
// line.
func (st *SymbolTable) DefOrder(keepLocals bool) []*Symbol {
	out := make([]*Symbol, 0, len(st.defOrder))
	for _, sym := range st.defOrder {
		if sym.local {
			continue // arena-only temps never reach the symbol table
		}
		if sym.stripped {
			continue // absolutes restored by .load are not re-emitted
		}
		if !keepLocals && len(sym.Name) > 0 && sym.Name[0] == 'L' {
			continue
		}
		out = append(out, sym)
	}
	return out
}

// All returns every symbol ever referenced, in first-reference order.
func (st *SymbolTable) All() []*Symbol { return st.chain }
