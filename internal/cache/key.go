package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// ContentHash returns the hex SHA-256 of source. It identifies file
// contents in the result cache and in scan history.
func ContentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Key identifies a scan by content and tier selection.
// Format: {contentHash}/{tiers}
func Key(source []byte, tiers concepts.TierSet) string {
	return keyFor(ContentHash(source), tiers)
}

func keyFor(hash string, tiers concepts.TierSet) string {
	if tiers == 0 {
		tiers = concepts.AllTiers
	}
	return hash + "/" + tiers.String()
}
