package main

import "io"

// pushStdin reads all of r into a buffer and enters it as a new frame
// named "-", the in-memory counterpart to PushInclude's file-backed frame:
// both end up producing the identical scrubFrame shape NextLogicalLine
// walks, so stdin assembles exactly like a named file.
func (s *Scrubber) pushStdin(r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.pushString("-", content)
	return nil
}
