package artifact

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentHash returns the hex-encoded SHA-256 digest of data. Content
// hashing has no third-party equivalent anywhere in the retrieval
// pack — every repo that touches checksums uses crypto/sha256 directly
// — so this stays on the standard library.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
