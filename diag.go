package main

import (
	"fmt"
	"os"
	"strings"
)

// SourceLocation pins a diagnostic to a place in the input.
type SourceLocation struct {
	File         string
	LogicalLine  int
	PhysicalLine int
	Column       int
}

func (loc SourceLocation) String() string {
	if loc.File == "" {
		return fmt.Sprintf("%d", loc.LogicalLine)
	}
	if loc.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", loc.File, loc.LogicalLine, loc.Column)
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.LogicalLine)
}

// ErrorLevel classifies the severity of a diagnostic.
type ErrorLevel int

const (
	LevelWarning ErrorLevel = iota
	LevelBad
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelBad:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Diagnostics is the message/diagnostics subsystem. It is carried on the
// Assembler context rather than kept in package globals so that a future
// caller can run more than one assembly in the same process.
type Diagnostics struct {
	Out            *os.File
	SuppressWarn   bool // -W
	ArchMultiple   bool // -arch_multiple
	ArchName       string
	bannerPrinted  bool
	bad            bool // sticky bad-error flag: suppresses object emission
	secureLogPath  string
	secureLogged   bool
	secureLogArmed bool
}

// NewDiagnostics builds a Diagnostics writing to os.Stderr.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{Out: os.Stderr, secureLogArmed: true}
}

func (d *Diagnostics) printBanner() {
	if d.ArchMultiple && !d.bannerPrinted {
		fmt.Fprintf(d.Out, "as: for architecture %s\n", d.ArchName)
		d.bannerPrinted = true
	}
}

// Warn reports a recoverable diagnostic with a known recovery action.
// Suppressed entirely when -W is in effect.
func (d *Diagnostics) Warn(loc SourceLocation, format string, args ...any) {
	if d.SuppressWarn {
		return
	}
	d.printBanner()
	fmt.Fprintf(d.Out, "%s: %s\n", loc, fmt.Sprintf(format, args...))
}

// WarnAt reports a warning at an explicit file/line, used when the current
// scrub position does not match the diagnostic's true origin (e.g. inline
// asm labels carrying the .inlineasmstart location).
func (d *Diagnostics) WarnAt(file string, line, col int, format string, args ...any) {
	d.Warn(SourceLocation{File: file, LogicalLine: line, Column: col}, format, args...)
}

// Bad reports an unrecoverable-for-this-statement diagnostic: assembly
// continues to end of input (to surface further errors) but no object file
// is written.
func (d *Diagnostics) Bad(loc SourceLocation, format string, args ...any) {
	d.printBanner()
	d.bad = true
	fmt.Fprintf(d.Out, "%s: %s\n", loc, fmt.Sprintf(format, args...))
}

// Fatal reports a diagnostic from which no further progress is possible and
// terminates the process with exit status 1.
func (d *Diagnostics) Fatal(loc SourceLocation, format string, args ...any) {
	d.printBanner()
	d.bad = true
	fmt.Fprintf(d.Out, "FATAL: %s: %s\n", loc, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Perror reports an I/O failure prefixed with the failing operation's
// context, then behaves like Bad (caller decides whether to also abort).
func (d *Diagnostics) Perror(context string, err error) {
	d.printBanner()
	d.bad = true
	fmt.Fprintf(d.Out, "as: %s: %s\n", context, err)
}

// HasBadError reports whether a sticky bad-error has been recorded; the
// driver consults this before writing an object file.
func (d *Diagnostics) HasBadError() bool {
	return d.bad
}

// SecureLogUnique appends a single "<file>:<line>:<msg>" line to the file
// named by AS_SECURE_LOG_FILE, at most once per translation unit unless
// re-armed by SecureLogReset.
func (d *Diagnostics) SecureLogUnique(loc SourceLocation, msg string) error {
	if d.secureLogged || d.secureLogPath == "" {
		return nil
	}
	f, err := os.OpenFile(d.secureLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := fmt.Sprintf("%s:%d:%s\n", loc.File, loc.LogicalLine, msg)
	if _, err := f.WriteString(line); err != nil {
		return err
	}
	d.secureLogged = true
	return nil
}

// SecureLogReset re-arms SecureLogUnique so the next call emits a line again.
func (d *Diagnostics) SecureLogReset() {
	d.secureLogged = false
}

// SetSecureLogPath configures the target of .secure_log_unique, normally
// sourced from the AS_SECURE_LOG_FILE environment variable.
func (d *Diagnostics) SetSecureLogPath(path string) {
	d.secureLogPath = strings.TrimSpace(path)
}
