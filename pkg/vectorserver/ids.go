package vectorserver

import (
	"crypto/rand"
	"encoding/hex"
)

// generateID returns a random 16-byte hex id for inserts that omit one.
func generateID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
