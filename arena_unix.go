//go:build unix

package main

import "golang.org/x/sys/unix"

const arenaPageSize = 64 * 1024

// mmapArena backs frag storage with anonymous mmap'd pages instead of Go
// heap allocations, the direct analogue of a classic append-only obstack:
// a dedicated unix implementation plus a portable fallback (arena_other.go).
type mmapArena struct {
	chunks  [][]byte
	mapped  []bool
	offset  int
}

func newPlatformArena() Arena {
	return &mmapArena{}
}

func (a *mmapArena) newChunk(minSize int) {
	size := arenaPageSize
	for size < minSize {
		size *= 2
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	mapped := err == nil
	if err != nil {
		mem = make([]byte, size)
	}
	a.chunks = append(a.chunks, mem)
	a.mapped = append(a.mapped, mapped)
	a.offset = 0
}

// ensure reserves space for `need` bytes in the current chunk (allocating a
// new one if necessary) and hands the rest of that chunk's capacity to the
// caller as slack, matching frag_new's "waste the remainder of this obstack
// chunk" behavior at a frag boundary.
func (a *mmapArena) ensure(need int) (chunk []byte, start, avail int) {
	if len(a.chunks) == 0 || a.offset+need > len(a.chunks[len(a.chunks)-1]) {
		a.newChunk(need)
	}
	chunk = a.chunks[len(a.chunks)-1]
	start = a.offset
	avail = len(chunk) - start
	a.offset = len(chunk)
	return
}

func (a *mmapArena) Grow(buf []byte, n int) []byte {
	need := len(buf) + n
	if cap(buf) >= need {
		out := buf[:need]
		for i := len(buf); i < need; i++ {
			out[i] = 0
		}
		return out
	}
	chunk, start, avail := a.ensure(need)
	fresh := chunk[start : start+need : start+avail]
	copy(fresh, buf)
	return fresh
}

func (a *mmapArena) Reset() {
	for i, c := range a.chunks {
		if a.mapped[i] {
			unix.Munmap(c)
		}
	}
	a.chunks = nil
	a.mapped = nil
	a.offset = 0
}
