package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainDocument = "gview/document/v1"
	DomainQuery    = "gview/query/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash identifies the content of a stored document. Documents that
// differ only in key order hash the same.
func DocumentHash(doc IRObject) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// QueryHash identifies an emitted query text in a dialect.
func QueryHash(dialect, text string) string {
	return hashWithDomain(DomainQuery, []byte(dialect+"\x00"+text))
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustDocumentHash(doc IRObject) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
