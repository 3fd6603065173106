// Package util holds identifier helpers shared by the API and its stores.
package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// NewID returns "{prefix}_{32 hex chars}", or bare hex when prefix is empty.
func NewID(prefix string) string {
	id := RandomHex(16)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// HasPrefix reports whether id was minted by NewID with prefix.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok || len(rest) != 32 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}
