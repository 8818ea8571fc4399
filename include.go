package main

import "fmt"

// handleInclude implements the `.include "file"` pseudo-op: it is handled
// directly by the reader rather than through dispatchPseudoOp since it
// needs access to the Scrubber, which pseudo-ops otherwise never touch.
func handleInclude(s *Scrubber, rest string) error {
	name, err := unquoteString(stripSpace(rest))
	if err != nil {
		return fmt.Errorf(".include requires a quoted file name: %w", err)
	}
	return s.PushInclude(name)
}
