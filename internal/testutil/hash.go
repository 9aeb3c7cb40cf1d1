package testutil

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// DigestHex returns the xxh3-128 digest of data as a lowercase hex string.
// Matches the digest format recorded in the journal.
func DigestHex(data []byte) string {
	sum := xxh3.Hash128(data).Bytes()
	return hex.EncodeToString(sum[:])
}
