//go:build unix

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

type pathError struct {
	op, path string
	err      error
}

func (e *pathError) Error() string { return fmt.Sprintf("%s %s: %v", e.op, e.path, e.err) }
func (e *pathError) Unwrap() error { return e.err }

// readFileBytes reads path's entire contents through raw unix.Open/
// unix.Read calls rather than os.ReadFile, the direct analogue of the
// file-descriptor half of the scrubber's two parallel implementations:
// the in-memory string path (scrub_string.go) and this fd-backed path
// must read byte-for-byte identical input for the same file.
func readFileBytes(path string) ([]byte, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, &pathError{op: "open", path: path, err: err}
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, &pathError{op: "stat", path: path, err: err}
	}

	buf := make([]byte, 0, st.Size)
	chunk := make([]byte, 64*1024)
	for {
		n, err := unix.Read(fd, chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if n == 0 || err != nil {
			if err != nil {
				return nil, &pathError{op: "read", path: path, err: err}
			}
			break
		}
	}
	return buf, nil
}
