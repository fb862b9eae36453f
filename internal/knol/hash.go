// Package knol computes the content identity of imported cards, so that a
// card keeps its schedule across re-imports as long as its text is unchanged.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Normalize lowercases a card side, trims it and normalizes line endings.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n")))
}

// Hash returns the hex SHA-256 of the normalized card texts. Each side is
// length-prefixed, so no text moved across the boundary between the sides
// yields the same input, whatever characters the sides contain.
func Hash(sourceText, targetText string) string {
	h := sha256.New()
	for _, side := range []string{sourceText, targetText} {
		n := Normalize(side)
		h.Write([]byte(strconv.Itoa(len(n))))
		h.Write([]byte{':'})
		h.Write([]byte(n))
	}
	return hex.EncodeToString(h.Sum(nil))
}
