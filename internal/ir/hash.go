package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without old and new hashes colliding.
const (
	DomainRecord     = "datamod/record/v1"
	DomainCollection = "datamod/collection/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null byte keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the hex SHA-256 of v's canonical JSON under domain.
// Structurally equal values hash identically regardless of key order.
func ContentHash(domain string, v IRValue) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(domain, data), nil
}

// HashBytes hashes bytes that are already canonical JSON.
func HashBytes(domain string, canonical []byte) string {
	return hashWithDomain(domain, canonical)
}
