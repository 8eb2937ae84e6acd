// Package signature implements the "secret sandwich" digest shared by both
// payment providers: base64(hash(secret + data + secret)).
package signature

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"hash"

	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest accepted on inbound signatures.
type Algorithm string

const (
	SHA1    Algorithm = "sha1"
	SHA3256 Algorithm = "sha3-256"
	None    Algorithm = ""
)

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case SHA3256:
		return sha3.New256()
	default:
		return sha1.New()
	}
}

// Result reports whether a signature matched and under which algorithm.
type Result struct {
	Valid     bool      `json:"isValid"`
	Algorithm Algorithm `json:"algorithm"`
}

// Sandwich returns base64(alg(secret + parts... + secret)). Parts are joined
// without separators.
func Sandwich(alg Algorithm, secret string, parts ...string) string {
	h := alg.newHash()
	h.Write([]byte(secret))
	for _, p := range parts {
		h.Write([]byte(p))
	}
	h.Write([]byte(secret))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Equal compares signatures case-sensitively in constant time.
func Equal(expected, got string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

// Verify recomputes the signature under each algorithm in order and reports
// the first match.
func Verify(got, secret, data string, algorithms ...Algorithm) Result {
	if got == "" {
		return Result{Algorithm: None}
	}
	for _, alg := range algorithms {
		if Equal(Sandwich(alg, secret, data), got) {
			return Result{Valid: true, Algorithm: alg}
		}
	}
	return Result{Algorithm: None}
}
