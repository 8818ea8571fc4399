package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Mach-O constants. 32-bit throughout: `as` emits a classic
// (non-64-bit) object file for every target it supports, including PPC.
const (
	machMagic  = 0xfeedface
	machObject = 0x1 // MH_OBJECT

	lcSegment  = 0x1
	lcSymtab   = 0x2
	lcDysymtab = 0xb

	mhSubsectionsViaSymbols = 0x2000

	sRegular  = 0x0
	sZerofill = 0x1

	sAttrPureInstructions   = 0x80000000
	sAttrSomeInstructions   = 0x00000400
	sNonLazySymbolPointers  = 0x6
	sLazySymbolPointers     = 0x7
	sSymbolStubs            = 0x8
)

// MachHeader is the 32-bit mach_header.
type MachHeader struct {
	Magic      uint32
	CPUType    int32
	CPUSubtype int32
	FileType   uint32
	NCmds      uint32
	SizeOfCmds uint32
	Flags      uint32
}

// SegmentCommand is the 32-bit segment_command; `as` emits one per section
// for an object file rather than grouping sections under shared segments.
type SegmentCommand struct {
	Cmd      uint32
	CmdSize  uint32
	SegName  [16]byte
	VMAddr   uint32
	VMSize   uint32
	FileOff  uint32
	FileSize uint32
	MaxProt  int32
	InitProt int32
	NSects   uint32
	Flags    uint32
}

// MachOSection is the 32-bit section structure.
type MachOSection struct {
	SectName  [16]byte
	SegName   [16]byte
	Addr      uint32
	Size      uint32
	Offset    uint32
	Align     uint32
	Reloff    uint32
	Nreloc    uint32
	Flags     uint32
	Reserved1 uint32
	Reserved2 uint32
}

// RelocationInfo is the 32-bit relocation_info word pair: r_address, then a
// packed bitfield (r_symbolnum:24, r_pcrel:1, r_length:2, r_extern:1,
// r_type:4). Go has no native bitfields, so Packed is built/read manually.
type RelocationInfo struct {
	Address int32
	Packed  uint32
}

func packReloc(symnum uint32, pcrel bool, length uint8, extern bool, rtype uint8) uint32 {
	var v uint32
	v = symnum & 0xffffff
	if pcrel {
		v |= 1 << 24
	}
	v |= uint32(length&0x3) << 25
	if extern {
		v |= 1 << 27
	}
	v |= uint32(rtype&0xf) << 28
	return v
}

// SymtabCommand is symtab_command.
type SymtabCommand struct {
	Cmd, CmdSize         uint32
	SymOff, NSyms        uint32
	StrOff, StrSize      uint32
}

// DysymtabCommand is dysymtab_command, trimmed to the fields `as` actually
// populates: everything else is zero (no module table, no TOC -- those are
// link-editor concerns).
type DysymtabCommand struct {
	Cmd, CmdSize                                     uint32
	ILocalSym, NLocalSym                             uint32
	IExtdefSym, NExtdefSym                           uint32
	IUndefSym, NUndefSym                             uint32
	TocOff, NToc                                     uint32
	ModtabOff, NModtab                                uint32
	ExtrefSymOff, NExtrefSyms                         uint32
	IndirectSymOff, NIndirectSyms                     uint32
	ExtrelOff, NExtrel                                uint32
	LocrelOff, NLocrel                                uint32
}

// Nlist is the 32-bit nlist entry.
type Nlist struct {
	Strx  uint32
	Type  uint8
	Sect  uint8
	Desc  uint16
	Value uint32
}

func segname16(s string) (out [16]byte) {
	copy(out[:], s)
	return
}

// ObjectFile is the fully-serialized byte image built by BuildObject.
type ObjectFile struct {
	Bytes []byte
}

// BuildObject assembles the final Mach-O object image from a completed
// Assembler's layout state. Every defined section becomes
// its own segment_command carrying exactly one section, the historical
// `as` object-file shape that the link-editor later merges.
func BuildObject(as *Assembler) *ObjectFile {
	order := binary.ByteOrder(binary.BigEndian)
	if !as.Backend.BigEndian() {
		order = binary.LittleEndian
	}

	sections := as.Sections.Sections()
	keepLocals := as.Opts.KeepLocals
	syms := as.Symtab.DefOrder(keepLocals)

	var relocsBySection = make([][]*Fix, len(sections))
	symIndex := make(map[*Symbol]int, len(syms))
	for i, s := range syms {
		symIndex[s] = i
	}

	for secIdx, sec := range sections {
		for f := sec.RootFrag; f != nil; f = f.Next {
			for _, fix := range f.Fixes {
				if fix.resolved && !fix.patched {
					relocsBySection[secIdx] = append(relocsBySection[secIdx], fix)
				}
			}
		}
	}

	header := MachHeader{
		Magic:      machMagic,
		CPUType:    as.Backend.CPUType(),
		CPUSubtype: as.Backend.CPUSubtype(),
		FileType:   machObject,
	}
	if as.subsectionsViaSymbols {
		header.Flags |= mhSubsectionsViaSymbols
	}

	var cmds bytes.Buffer
	var payload bytes.Buffer
	ncmds := uint32(0)

	fileOff := func() uint32 { return uint32(28+len(cmds.Bytes())) + uint32(payload.Len()) }
	_ = fileOff

	headerSize := uint32(28) // sizeof(mach_header)

	// First pass: compute each section's file offset once every earlier
	// section/command's size is known, then write commands+payload
	// together so offsets are self-consistent in one pass.
	type secLayout struct {
		sec      *Section
		content  []byte
		relocOff uint32
		nreloc   uint32
	}
	layouts := make([]secLayout, len(sections))
	for i, sec := range sections {
		layouts[i].sec = sec
		layouts[i].content = sec.Bytes()
	}

	cmdSize := uint32(0)
	for range sections {
		cmdSize += uint32(56 + 68) // segment_command + one section
	}
	symtabCmdOff := cmdSize
	cmdSize += 24 // symtab_command
	var dysymtabOff uint32
	if as.Opts.Dynamic {
		dysymtabOff = cmdSize
		cmdSize += 80 // dysymtab_command
	}

	dataStart := headerSize + cmdSize
	offset := dataStart
	for i := range layouts {
		offset = align4(offset)
		sec := layouts[i].sec
		sec.FileOffset = uint64(offset)
		offset += uint32(len(layouts[i].content))
	}
	for i := range layouts {
		nreloc := uint32(len(relocsBySection[i]))
		if nreloc > 0 {
			offset = align4(offset)
			layouts[i].relocOff = offset
			layouts[i].nreloc = nreloc
			offset += nreloc * 8
		}
	}

	symOff := offset
	strOff := symOff + uint32(len(syms))*12
	strTab := []byte{0}
	strIndex := make(map[string]uint32, len(syms))
	for _, s := range syms {
		if s.Name == "" {
			strIndex[s.Name] = 0
			continue
		}
		strIndex[s.Name] = uint32(len(strTab))
		strTab = append(strTab, []byte(s.Name)...)
		strTab = append(strTab, 0)
	}

	var indirectOff uint32
	nindirect := 0
	if as.Opts.Dynamic {
		for _, sec := range sections {
			nindirect += len(sec.Indirect)
		}
		if nindirect > 0 {
			indirectOff = strOff + uint32(len(strTab))
		}
	}

	for i, sec := range layouts[:len(sections)] {
		_ = i
		seg := SegmentCommand{
			Cmd:      lcSegment,
			CmdSize:  56 + 68,
			SegName:  segname16(sec.sec.Segname),
			VMAddr:   uint32(sec.sec.Address),
			VMSize:   uint32(sec.sec.Size),
			FileOff:  uint32(sec.sec.FileOffset),
			FileSize: uint32(len(layouts[indexOf(sections, sec.sec)].content)),
			MaxProt:  7,
			InitProt: 7,
			NSects:   1,
		}
		if sec.sec.Flags&sZerofill != 0 {
			seg.FileSize = 0
		}
		binary.Write(&cmds, order, seg)
		msec := MachOSection{
			SectName: segname16(sec.sec.Sectname),
			SegName:  segname16(sec.sec.Segname),
			Addr:     uint32(sec.sec.Address),
			Size:     uint32(sec.sec.Size),
			Offset:   uint32(sec.sec.FileOffset),
			Align:    sec.sec.Align,
			Reloff:   layouts[indexOf(sections, sec.sec)].relocOff,
			Nreloc:   layouts[indexOf(sections, sec.sec)].nreloc,
			Flags:    sec.sec.Flags,
		}
		binary.Write(&cmds, order, msec)
		ncmds++
	}

	symtabCmd := SymtabCommand{
		Cmd: lcSymtab, CmdSize: 24,
		SymOff: symOff, NSyms: uint32(len(syms)),
		StrOff: strOff, StrSize: uint32(len(strTab)),
	}
	binary.Write(&cmds, order, symtabCmd)
	ncmds++

	if as.Opts.Dynamic {
		dysym := DysymtabCommand{Cmd: lcDysymtab, CmdSize: 80}
		dysym.NLocalSym = uint32(len(syms))
		dysym.IndirectSymOff = indirectOff
		dysym.NIndirectSyms = uint32(nindirect)
		binary.Write(&cmds, order, dysym)
		ncmds++
	}

	header.NCmds = ncmds
	header.SizeOfCmds = uint32(cmds.Len())

	var out bytes.Buffer
	binary.Write(&out, order, header)
	out.Write(cmds.Bytes())

	for i, l := range layouts {
		for uint32(out.Len()) < l.sec.FileOffset {
			out.WriteByte(0)
		}
		_ = i
		out.Write(l.content)
	}
	for i, l := range layouts {
		if l.nreloc == 0 {
			continue
		}
		for uint32(out.Len()) < l.relocOff {
			out.WriteByte(0)
		}
		for _, fix := range relocsBySection[i] {
			writeReloc(&out, order, as, fix, symIndex)
		}
	}

	for uint32(out.Len()) < symOff {
		out.WriteByte(0)
	}
	for _, s := range syms {
		n := Nlist{
			Strx:  strIndex[s.Name],
			Type:  s.Type,
			Sect:  s.Sect,
			Desc:  s.Desc,
			Value: uint32(s.Value),
		}
		if s.IsSection() {
			n.Value = uint32(fragResolvedValue(s))
		}
		binary.Write(&out, order, n)
	}
	out.Write(strTab)

	if as.Opts.Dynamic && nindirect > 0 {
		for _, sec := range sections {
			for _, ind := range sec.Indirect {
				sym, _ := as.Symtab.Find(ind.Name)
				idx := uint32(0)
				if sym != nil {
					if i, ok := symIndex[sym]; ok {
						idx = uint32(i)
					}
				}
				binary.Write(&out, order, idx)
			}
		}
	}

	return &ObjectFile{Bytes: out.Bytes()}
}

func indexOf(sections []*Section, target *Section) int {
	for i, s := range sections {
		if s == target {
			return i
		}
	}
	return -1
}

func align4(v uint32) uint32 { return (v + 3) &^ 3 }

func writeReloc(out *bytes.Buffer, order binary.ByteOrder, as *Assembler, fix *Fix, symIndex map[*Symbol]int) {
	rtype, length := as.Backend.RelocMachType(fix.RelocType)
	extern := fix.AddSymbol != nil && fix.AddSymbol.External()
	symnum := uint32(0)
	if extern {
		if i, ok := symIndex[fix.AddSymbol]; ok {
			symnum = uint32(i)
		}
	} else if fix.AddSymbol != nil {
		symnum = uint32(fix.AddSymbol.Sect)
	}
	ri := RelocationInfo{
		Address: int32(fix.Frag.Address) + int32(fix.Where),
		Packed:  packReloc(symnum, fix.PcrelReloc, length, extern, rtype),
	}
	binary.Write(out, order, ri)
}

// WriteMachO writes the built object image to path.
func WriteMachO(path string, obj *ObjectFile) error {
	if err := os.WriteFile(path, obj.Bytes, 0o644); err != nil {
		return fmt.Errorf("cannot write object file %q: %w", path, err)
	}
	return nil
}
