package main

import (
	"fmt"
	"os"
)

const versionString = "pas 1.0"

func main() {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "as: %s\n", err)
		os.Exit(1)
	}

	if opts.PrintVer {
		fmt.Fprintln(os.Stderr, versionString)
	}

	backend, err := selectBackend(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "as: %s\n", err)
		os.Exit(1)
	}

	diag := NewDiagnostics()
	diag.SuppressWarn = opts.NoWarnings
	diag.ArchMultiple = opts.ArchMultiple
	diag.ArchName = opts.ArchName

	as := NewAssembler(opts, diag, backend)

	sources, err := gatherSources(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "as: %s\n", err)
		os.Exit(1)
	}

	if err := Assemble(as, sources); err != nil {
		fmt.Fprintf(os.Stderr, "as: %s\n", err)
		os.Exit(1)
	}

	if diag.HasBadError() {
		os.Exit(1)
	}
}

// selectBackend maps -arch to a concrete Backend. PPC is the only
// backend this assembler implements; the Backend interface is shaped so
// that m68k/i386/x86_64/HPPA/SPARC/m88k/ARM backends plug in the same way.
func selectBackend(opts *Options) (Backend, error) {
	switch opts.ArchName {
	case "", "ppc", "ppc750", "ppc7400", "ppc970":
		return newPPCBackend(opts), nil
	default:
		return nil, fmt.Errorf("unsupported -arch %q", opts.ArchName)
	}
}

// gatherSources turns the parsed option set's source-file list (plus stdin
// when "--" was given) into the SourceInput slice Assemble consumes.
func gatherSources(opts *Options) ([]SourceInput, error) {
	var sources []SourceInput
	for _, path := range opts.SourceFiles {
		p := path
		sources = append(sources, SourceInput{
			Name:   p,
			Reader: func() ([]byte, error) { return readFileBytes(p) },
		})
	}
	if opts.ReadStdin {
		sources = append(sources, SourceInput{Name: "-"})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	return sources, nil
}
