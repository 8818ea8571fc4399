//go:build !unix

package main

import "os"

// readFileBytes is the portable fallback for platforms without the unix
// build tag, reading through the ordinary os package.
func readFileBytes(path string) ([]byte, error) {
	return os.ReadFile(path)
}
