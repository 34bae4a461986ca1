package bank

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives the dedup key for an item's content. Each part
// is normalized (case-folded, whitespace collapsed, trimmed) before
// hashing so cosmetic rewordings collapse to the same key. Difficulty
// is part of the key on purpose: the same question re-used at a
// harder difficulty is a distinct item, not a duplicate.
func Fingerprint(question, canonicalAnswer, topic string, d Difficulty) string {
	h := sha256.New()
	for _, part := range []string{
		normalize(question),
		normalize(canonicalAnswer),
		normalize(topic),
		string(d),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0x1f}) // field separator
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
