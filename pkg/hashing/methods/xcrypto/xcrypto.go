// Package xcrypto provides hashing methods backed by golang.org/x/crypto
package xcrypto

import (
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"hashquest/pkg/hashing/core"
)

const (
	// AlgorithmSHA3 is SHA3-256 (FIPS 202)
	AlgorithmSHA3 = "sha3-256"

	// AlgorithmBlake2b is BLAKE2b with a 256-bit digest
	AlgorithmBlake2b = "blake2b-256"
)

// NewSHA3Method creates a SHA3-256 hashing method
func NewSHA3Method() *core.PrimitiveMethod {
	return core.NewPrimitiveMethod("SHA3-256", AlgorithmSHA3, 1_500_000, sha3.Sum256)
}

// NewBlake2bMethod creates a BLAKE2b-256 hashing method
func NewBlake2bMethod() *core.PrimitiveMethod {
	return core.NewPrimitiveMethod("BLAKE2b-256", AlgorithmBlake2b, 3_000_000, blake2b.Sum256)
}
