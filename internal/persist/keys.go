package persist

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Keys derives storage keys under a common prefix.
type Keys struct {
	prefix string
}

// NewKeys returns a key scheme rooted at prefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = "flashpay"
	}
	return Keys{prefix: prefix}
}

// Global is the key of the snapshot holding everything except payments. It
// is the only key contexts watch for changes.
func (k Keys) Global() string {
	return k.prefix + ":state"
}

// Payments is the merchant-scoped payment bucket key. The merchant id is
// hashed so raw ids never appear in key listings.
func (k Keys) Payments(merchantID string) string {
	sum := blake2b.Sum256([]byte(merchantID))
	return k.prefix + ":payments:" + hex.EncodeToString(sum[:16])
}
