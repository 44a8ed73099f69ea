package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// ReadFingerprinted reads a whole data file and returns its contents with
// their SHA256 fingerprint, so a parse and its fingerprint always describe
// the same bytes.
func ReadFingerprinted(filePath string) ([]byte, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(&buf, h), f); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), hex.EncodeToString(h.Sum(nil)), nil
}
