package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func assembleToObject(t *testing.T, asmSrc string) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.o")
	opts := DefaultOptions()
	opts.OutputPath = out
	opts.ArchName = "ppc"

	diag := NewDiagnostics()
	backend := newPPCBackend(opts)
	as := NewAssembler(opts, diag, backend)

	src := SourceInput{
		Name:   "t.s",
		Reader: func() ([]byte, error) { return []byte(asmSrc), nil },
	}
	if err := Assemble(as, []SourceInput{src}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if diag.HasBadError() {
		t.Fatalf("assembly of %q reported a bad error", asmSrc)
	}
	return out
}

func TestEndToEndAssemblesMinimalTextSection(t *testing.T) {
	out := assembleToObject(t, "\t.text\n_main:\n\tnop\n\tnop\n\taddi r3,r3,1\n")

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) < 28 {
		t.Fatalf("object file too small: %d bytes", len(data))
	}
	magic := binary.BigEndian.Uint32(data[0:4])
	if magic != machMagic {
		t.Fatalf("mach_header magic = %#x, want %#x", magic, machMagic)
	}
	cpuType := int32(binary.BigEndian.Uint32(data[4:8]))
	if cpuType != cpuTypePowerPC {
		t.Fatalf("mach_header cputype = %d, want %d (PowerPC)", cpuType, cpuTypePowerPC)
	}
	fileType := binary.BigEndian.Uint32(data[12:16])
	if fileType != machObject {
		t.Fatalf("mach_header filetype = %d, want %d (MH_OBJECT)", fileType, machObject)
	}
}

func TestEndToEndTooFewOperandsReportsBadError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.o")
	opts := DefaultOptions()
	opts.OutputPath = out
	diag := NewDiagnostics()
	diag.Out, _ = os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	backend := newPPCBackend(opts)
	as := NewAssembler(opts, diag, backend)

	src := SourceInput{
		Name:   "t.s",
		Reader: func() ([]byte, error) { return []byte("\t.text\n\taddi r3,r3\n"), nil },
	}
	if err := Assemble(as, []SourceInput{src}); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !diag.HasBadError() {
		t.Fatalf("addi with too few operands must set the sticky bad-error flag")
	}
}

func TestEndToEndLabelAndBranchRoundTrip(t *testing.T) {
	out := assembleToObject(t, "\t.text\n"+
		"loop:\n"+
		"\taddi r3,r3,-1\n"+
		"\tcmpi cr0,r3,0\n"+
		"\tbc 4,2,loop\n")

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("expected a non-empty object file")
	}
}
