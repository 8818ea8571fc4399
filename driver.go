package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// Assembler is the single context object threading every component
// together for one run: options, diagnostics, symbol/section/macro state,
// the current conditional stack, the byte arena, and the selected backend.
// One Assembler serves every source passed to Assemble plus whatever
// `.include` pulls in; `-arch_multiple` only adds the architecture banner
// to diagnostics.
type Assembler struct {
	Opts *Options
	Diag *Diagnostics
	Env  EnvConfig

	Arena    Arena
	Sections *SectionTable
	Symtab   *SymbolTable
	Cond     *CondStack
	Macros   *MacroTable

	Backend Backend
	Dwarf   *DwarfLineState

	inlineAsmStart *SourceLocation // non-nil between.inlineasmstart/.inlineasmend
	macrosEnabled  bool
	subsectionsViaSymbols bool

	currentFile string
	currentLine int
}

// NewAssembler builds a fresh context for one architecture pass.
func NewAssembler(opts *Options, diag *Diagnostics, backend Backend) *Assembler {
	as := &Assembler{
		Opts:          opts,
		Diag:          diag,
		Env:           LoadEnvConfig(),
		Arena:         newArena(),
		Sections:      newSectionTable(),
		Symtab:        newSymbolTable(),
		Cond:          newCondStack(),
		Macros:        newMacroTable(),
		Backend:       backend,
		Dwarf:         newDwarfLineState(),
		macrosEnabled: true,
	}
	if as.Env.SecureLogFile != "" {
		diag.SetSecureLogPath(as.Env.SecureLogFile)
	}
	return as
}

// installSignalHandlers arrests the process cleanly on the signals a batch
// tool like as is expected to honor: SIGHUP/SIGINT/SIGPIPE/SIGTERM each
// report a diagnostic and exit with status 1 (flushing nothing -- there is
// no partial object worth keeping).
func installSignalHandlers(as *Assembler) chan<- struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, unix.SIGHUP, unix.SIGINT, unix.SIGPIPE, unix.SIGTERM)

	done := make(chan struct{}, 1)
	go func() {
		select {
		case sig := <-sigChan:
			as.Diag.Perror("as", errSignal(sig))
			os.Exit(1)
		case <-done:
		}
	}()

	return done
}

type signalError struct{ sig os.Signal }

func (e signalError) Error() string { return "interrupted by " + e.sig.String() }

func errSignal(sig os.Signal) error { return signalError{sig: sig} }

// Assemble drives one architecture pass end to end: preprocess, scrub,
// read/dispatch every statement, then lay out and write the Mach-O object.
// Returns an error only for conditions that abort the whole run (I/O
// failures); per-statement semantic errors are reported through Diag and
// tracked via Diag.HasBadError.
func Assemble(as *Assembler, sources []SourceInput) error {
	done := installSignalHandlers(as)
	defer close(done)

	bootstrap := as.Backend.TextSegName()
	text := as.Sections.Section(bootstrap.Segname, bootstrap.Sectname, bootstrap.Flags, bootstrap.Align)
	as.Sections.SetCurrent(text)

	r := newReader(as)
	for _, src := range sources {
		if err := r.ReadSource(src); err != nil {
			return err
		}
	}

	if as.Diag.HasBadError() {
		return nil // reader already reported every bad statement; emit nothing
	}

	prepareDwarf(as)

	if err := LayoutAndRelax(as); err != nil {
		return err
	}

	finalizeDwarf(as, dwarfCUName(sources, as))

	obj := BuildObject(as)
	return WriteMachO(as.Opts.OutputPath, obj)
}

// dwarfCUName picks the compile_unit's DW_AT_name: the first real source
// file named on the command line, falling back to whatever file the reader
// was last processing (e.g. when assembling from standard input).
func dwarfCUName(sources []SourceInput, as *Assembler) string {
	for _, src := range sources {
		if src.Name != "-" {
			return src.Name
		}
	}
	if as.currentFile != "" {
		return as.currentFile
	}
	return "-"
}

// SourceInput names one translation unit fed to Assemble: either a named
// file or, when ReadStdin is set, the standard input stream under the
// conventional name "-".
type SourceInput struct {
	Name   string
	Reader func() ([]byte, error)
}
