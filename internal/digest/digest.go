// Package digest computes the content-addressing hash used by the
// remote blob store: SHA-1, rendered as 40 lowercase hex characters.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
)

var hexPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Sum returns the digest of the file at path. The file is streamed
// through the hash so large archives never need to fit in memory.
func Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Valid reports whether s has the shape Sum produces.
func Valid(s string) bool {
	return hexPattern.MatchString(s)
}

// Verify recomputes the digest of path and fails when it does not match
// want. Used after downloads to catch corruption in transit.
func Verify(path, want string) error {
	got, err := Sum(path)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("digest mismatch for %s: got %s, want %s", path, got, want)
	}
	return nil
}
