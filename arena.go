package main

// Arena is the bump allocator backing every frag's Literal slice. Grow is the only operation a frag needs:
// append n zeroed bytes to buf, reusing arena-owned backing storage instead
// of letting the Go runtime allocator churn through a fresh array on every
// growth the way a bare append(buf, make([]byte, n)...) would for
// megabyte-scale object files.
type Arena interface {
	Grow(buf []byte, n int) []byte
	// Reset releases all arena memory. Only valid once no Frag/Symbol still
	// references bytes returned by Grow.
	Reset()
}

// newArena builds the platform-appropriate arena: mmap-backed pages on
// Unix (arena_unix.go), a plain growable-slice pool everywhere else
// (arena_other.go), the usual build-tag split for golang.org/x/sys
// availability.
func newArena() Arena {
	return newPlatformArena()
}
