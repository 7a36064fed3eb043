// Package digest computes streaming SHA-256 content digests with a fixed
// read block size so memory use is independent of file size. The digest
// string form is "sha256:<hex>" and serves as a file's identity key for
// duplicate detection and migration verification.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prefix identifies the digest algorithm in serialized form.
const Prefix = "sha256:"

// DefaultBlockSize is the read chunk size when none is configured.
const DefaultBlockSize = 128 * 1024

// Hasher computes content digests using a fixed block size.
type Hasher struct {
	blockSize int
}

// New returns a Hasher reading in blocks of blockSize bytes.
// Non-positive values fall back to DefaultBlockSize.
func New(blockSize int) Hasher {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return Hasher{blockSize: blockSize}
}

// File streams the file at path and returns its digest.
func (h Hasher) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return h.Reader(f)
}

// Reader consumes r to EOF and returns the digest of the bytes read.
func (h Hasher) Reader(r io.Reader) (string, error) {
	sum := sha256.New()
	buf := make([]byte, h.blockSize)
	if _, err := io.CopyBuffer(sum, r, buf); err != nil {
		return "", err
	}
	return Format(sum.Sum(nil)), nil
}

// Verify re-hashes the file at path and reports whether it matches want.
// The observed digest is returned for mismatch reporting.
func (h Hasher) Verify(path, want string) (bool, string, error) {
	got, err := h.File(path)
	if err != nil {
		return false, "", err
	}
	return Equal(got, want), got, nil
}

// Format renders a raw SHA-256 sum in serialized digest form.
func Format(sum []byte) string {
	return Prefix + hex.EncodeToString(sum)
}

// Equal compares two serialized digests, tolerating a missing prefix on
// either side so manifests produced by older tooling still verify.
func Equal(a, b string) bool {
	return normalize(a) == normalize(b)
}

func normalize(d string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), Prefix))
}

// Validate checks that d looks like a serialized SHA-256 digest.
func Validate(d string) error {
	hexPart := normalize(d)
	if len(hexPart) != sha256.Size*2 {
		return fmt.Errorf("digest %q: want %d hex characters, got %d", d, sha256.Size*2, len(hexPart))
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return errors.New("digest is not hexadecimal")
	}
	return nil
}
