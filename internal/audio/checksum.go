package audio

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// Checksum returns the hex BLAKE3-256 digest of r.
func Checksum(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash recording: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumFile hashes the file at path.
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return Checksum(f)
}
