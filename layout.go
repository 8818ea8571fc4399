package main

import (
	"bytes"
	"fmt"
)

// sealSections closes whatever frag is currently open in every section, so
// address assignment walks a fixed chain.
func sealSections(as *Assembler) {
	for _, sec := range as.Sections.Sections() {
		if sec.LastFrag != nil {
			sec.LastFrag.closed = true
		}
	}
}

// alignUp rounds addr up to a multiple of 1<<pow2.
func alignUp(addr uint64, pow2 int) uint64 {
	mask := (uint64(1) << uint(pow2)) - 1
	return (addr + mask) &^ mask
}

// assignAddresses walks every section's frag chain left to right, resolving
// each frag's ResolvedSize/FinalBytes and Address. Returns
// whether any section's total size changed since the previous pass, which
// drives the relaxation fixpoint.
func assignAddresses(as *Assembler) (changed bool) {
	for _, sec := range as.Sections.Sections() {
		prevSize := sec.Size
		addr := sec.Address
		for f := sec.RootFrag; f != nil; f = f.Next {
			f.Address = addr
			size := resolveFrag(as, sec, f, addr)
			f.ResolvedSize = size
			addr += uint64(size)
		}
		sec.Size = addr - sec.Address
		if sec.Size != prevSize {
			changed = true
		}
	}
	return changed
}

// resolveFrag computes one frag's final size and byte content given its
// assigned starting address. Relaxable kinds (ALIGN/ORG/LEB128/DWARF2) may
// legitimately change size between passes as symbol values settle.
func resolveFrag(as *Assembler, sec *Section, f *Frag, addr uint64) int {
	switch f.Type {
	case FragFill:
		if f.VarSize > 0 && f.Offset > 0 {
			unit := f.Literal[:f.VarSize]
			f.FinalBytes = bytes.Repeat(unit, int(f.Offset))
		} else {
			f.FinalBytes = f.Literal
		}
		return len(f.FinalBytes)

	case FragAlign:
		target := alignUp(addr, int(f.Offset))
		pad := int(target - addr)
		if f.Subtype > 0 && pad > f.Subtype {
			f.FinalBytes = nil
			return 0
		}
		unit := f.Literal[:f.VarSize]
		full := pad / f.VarSize
		rem := pad % f.VarSize
		buf := bytes.Repeat(unit, full)
		if rem > 0 {
			buf = append(buf, unit[:rem]...)
		}
		f.FinalBytes = buf
		return len(buf)

	case FragOrg:
		target := uint64(f.Offset)
		if f.Symbol != nil {
			target += fragResolvedValue(f.Symbol)
		}
		if target < addr {
			as.Diag.Bad(SourceLocation{File: f.File, LogicalLine: f.Line}, "can't .org backwards to address %d from %d", target, addr)
			f.FinalBytes = nil
			return 0
		}
		f.FinalBytes = make([]byte, target-addr)
		return len(f.FinalBytes)

	case FragLeb128:
		val := resolveLeb128Expr(f)
		f.FinalBytes = encodeLeb128(val, f.Subtype != 0)
		return len(f.FinalBytes)

	case FragDwarf2:
		return resolveDwarf2Frag(as, sec, f, addr)
	}
	return len(f.Literal)
}

// fragResolvedValue returns a defined symbol's address-space value: for a
// SECT symbol this is its frag's assigned address plus its offset; for an
// ABSOLUTE symbol it is the symbol's raw value.
func fragResolvedValue(sym *Symbol) uint64 {
	if sym.Frag != nil {
		return sym.Frag.Address + uint64(sym.Offset)
	}
	return sym.Value
}

// maxRelaxPasses bounds the relaxation fixpoint loop; real assemblies
// converge in a handful of passes, and a non-converging layout is a bug
// rather than something to spin on forever.
const maxRelaxPasses = 50

// LayoutAndRelax runs the full layout pipeline: seal, iterate address
// assignment to a fixpoint, then apply every fix.
func LayoutAndRelax(as *Assembler) error {
	sealSections(as)

	// Object files place every section at address 0 within its own segment
	// command: one load command per section means sections don't share an
	// address space the way a linked image's sections would.
	for _, sec := range as.Sections.Sections() {
		sec.Address = 0
	}

	for pass := 0; pass < maxRelaxPasses; pass++ {
		if !assignAddresses(as) {
			break
		}
		if pass == maxRelaxPasses-1 {
			return fmt.Errorf("layout did not converge after %d passes", maxRelaxPasses)
		}
	}

	if err := applyFixes(as); err != nil {
		return err
	}
	return nil
}

// applyFixes walks every section's frags and resolves their fix lists:
// same-section DIFFSECT fixes are patched directly, local non-pcrel-reloc
// fixes are resolved in place, and everything else is left for the Mach-O
// relocation table the object writer builds.
func applyFixes(as *Assembler) error {
	for _, sec := range as.Sections.Sections() {
		for f := sec.RootFrag; f != nil; f = f.Next {
			for _, fix := range f.Fixes {
				if err := resolveFix(as, sec, f, fix); err != nil {
					as.Diag.Bad(SourceLocation{File: fix.File, LogicalLine: fix.Line}, "%v", err)
				}
			}
		}
	}
	return nil
}

func resolveFix(as *Assembler, sec *Section, f *Frag, fix *Fix) error {
	val, needsReloc, err := evaluateFix(as, sec, f, fix)
	if err != nil {
		return err
	}
	if !needsReloc {
		buf := fixBuf(f, fix)
		if buf == nil {
			return nil
		}
		fix.patched = true
		return as.Backend.ApplyFix(buf, fix, val)
	}
	// Mark resolved but not patched: the object writer emits a relocation
	// entry for every resolved, unpatched fix, computed from
	// AddSymbol/SubtractSymbol/Addend, while ApplyFix here still lays down
	// the instruction's addend bits.
	buf := fixBuf(f, fix)
	if buf != nil {
		if err := as.Backend.ApplyFix(buf, fix, val); err != nil {
			return err
		}
	}
	fix.resolved = true
	return nil
}

func fixBuf(f *Frag, fix *Fix) []byte {
	if fix.Where+fix.Size > len(f.Literal) {
		return nil
	}
	return f.Literal[fix.Where : fix.Where+fix.Size]
}

// evaluateFix computes a fix's numeric value and reports whether a Mach-O
// relocation entry is still required.
func evaluateFix(as *Assembler, sec *Section, f *Frag, fix *Fix) (val int64, needsReloc bool, err error) {
	add := fix.AddSymbol
	sub := fix.SubtractSymbol

	if add != nil && sub != nil {
		if add.defined && sub.defined && add.Sect == sub.Sect {
			v := int64(fragResolvedValue(add)) - int64(fragResolvedValue(sub)) + fix.Addend
			if fix.SectdiffDivideByTwo {
				v /= 2
			}
			return v, false, nil
		}
		return fix.Addend, true, nil
	}

	if add == nil {
		return fix.Addend, false, nil
	}

	if !add.defined {
		return fix.Addend, true, nil
	}

	if add.Type&NTypeMask == NTypeAbs {
		return int64(add.Value) + fix.Addend, false, nil
	}

	// Defined section-relative symbol.
	if fix.PcrelReloc {
		// External/global symbols still need a relocation entry so the
		// linker can rebind across object boundaries.
		if add.External() {
			return fix.Addend, true, nil
		}
	}

	target := int64(fragResolvedValue(add)) + fix.Addend
	if fix.Pcrel {
		target -= int64(f.Address) + int64(fix.Where)
	}

	if !fix.PcrelReloc && !add.External() {
		return target, false, nil
	}
	return target, fix.PcrelReloc && add.External(), nil
}
