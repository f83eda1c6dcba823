// Package fileutil implements verified file copies for library assets.
package fileutil

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyFile copies src to dst, truncating any existing destination.
func CopyFile(src, dst string) error {
	_, _, err := copyHashed(src, dst)
	return err
}

// CopyFileVerified copies src to dst and verifies the result by re-reading
// the destination: its size and SHA-256 digest must match what was streamed
// from the source. The destination is removed when verification fails, so a
// partial or corrupted copy never lingers in the library.
func CopyFileVerified(src, dst string) error {
	wantSum, wantSize, err := copyHashed(src, dst)
	if err != nil {
		return err
	}

	gotSum, gotSize, err := hashFile(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("verify copy: %w", err)
	}
	if gotSize != wantSize {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: wrote %d bytes, read back %d", wantSize, gotSize)
	}
	if gotSum != wantSum {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// copyHashed streams src to dst and returns the digest and byte count of the
// data that passed through.
func copyHashed(src, dst string) (sum [sha256.Size]byte, size int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return sum, 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return sum, 0, err
	}

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(out, hasher), in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return sum, 0, err
	}
	copy(sum[:], hasher.Sum(nil))
	return sum, size, nil
}

func hashFile(path string) (sum [sha256.Size]byte, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return sum, 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err = io.Copy(hasher, f)
	if err != nil {
		return sum, 0, err
	}
	copy(sum[:], hasher.Sum(nil))
	return sum, size, nil
}
