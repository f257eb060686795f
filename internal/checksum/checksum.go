package checksum

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Register SHA256 for crypto.SHA256.New.
	_ "crypto/sha256"
)

// Function is the digest recorded for every release asset.
const Function crypto.Hash = crypto.SHA256

// hexLength is the length of a hex-encoded SHA-256 digest.
const hexLength = 64

var errHashUnavailable = errors.New("hash function unavailable")

// SHA256 returns the raw SHA-256 digest of data.
func SHA256(data []byte) []byte {
	hasher := Function.New()
	// hash.Hash never returns an error from Write.
	_, _ = hasher.Write(data)

	return hasher.Sum(nil)
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	return hex.EncodeToString(SHA256(data))
}

// FileSHA256Hex streams the file at path through SHA-256.
func FileSHA256Hex(path string) (string, error) {
	if !Function.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := Function.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("calculate checksum of %s: %w", path, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// IsSHA256Hex reports whether s is a lowercase hex SHA-256 digest.
func IsSHA256Hex(s string) bool {
	if len(s) != hexLength {
		return false
	}

	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}

	return true
}
