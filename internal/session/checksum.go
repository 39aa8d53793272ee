package session

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Checksum is the default payload checksum primitive: the hex-encoded
// SHA-256 digest of the ciphertext bytes.
func SHA256Checksum(ciphertext string) string {
	sum := sha256.Sum256([]byte(ciphertext))
	return hex.EncodeToString(sum[:])
}

// IsHexChecksum reports whether s looks like a well-formed checksum. Only a
// syntactically valid value is ever submitted as old_checksum with a push.
func IsHexChecksum(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
