package core

import (
	"crypto/sha256"
	"errors"
	"math/bits"
)

// CanonicalSHA256 provides the canonical SHA-256 digests used by the software methods
type CanonicalSHA256 struct{}

// NewCanonicalSHA256 creates a new canonical SHA-256 instance
func NewCanonicalSHA256() *CanonicalSHA256 {
	return &CanonicalSHA256{}
}

// ComputeSHA256 computes a single SHA-256 hash
func (c *CanonicalSHA256) ComputeSHA256(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// ComputeDoubleSHA256 computes SHA256(SHA256(data)), Bitcoin's hash function
func (c *CanonicalSHA256) ComputeDoubleSHA256(data []byte) [DigestSize]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// LeadingZeroBits counts the zero bits at the start of a digest, most
// significant bit of byte 0 first.
func LeadingZeroBits(digest [DigestSize]byte) int {
	n := 0
	for _, b := range digest {
		if b != 0 {
			return n + bits.LeadingZeros8(b)
		}
		n += 8
	}
	return n
}

// HasLeadingZeroBits reports whether the first count bits of digest are zero
func HasLeadingZeroBits(digest [DigestSize]byte, count int) bool {
	if count <= 0 {
		return true
	}
	if count > DigestSize*8 {
		return false
	}
	byteNum := count / 8
	for i := 0; i < byteNum; i++ {
		if digest[i] != 0 {
			return false
		}
	}
	remaining := count % 8
	if remaining > 0 && bits.LeadingZeros8(digest[byteNum]) < remaining {
		return false
	}
	return true
}

// HashError represents errors that can occur during hashing operations
type HashError struct {
	Type    ErrorType
	Message string
	Context map[string]interface{}
}

func (e *HashError) Error() string {
	return e.Message
}

// ErrorType represents different types of hashing errors
type ErrorType int

const (
	ErrorInvalidInput ErrorType = iota
	ErrorHardwareUnavailable
	ErrorOperationFailed
)

// IsUnavailable reports whether err is a HashError signalling that the
// underlying primitive cannot be used.
func IsUnavailable(err error) bool {
	var he *HashError
	return errors.As(err, &he) && he.Type == ErrorHardwareUnavailable
}
