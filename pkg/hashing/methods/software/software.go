package software

import "hashquest/pkg/hashing/core"

const (
	// AlgorithmSHA256 is plain SHA-256
	AlgorithmSHA256 = "sha256"

	// AlgorithmDoubleSHA256 is SHA256(SHA256(data))
	AlgorithmDoubleSHA256 = "sha256d"
)

// SoftwareMethod implements the HashMethod interface for pure software hashing
type SoftwareMethod struct {
	*core.PrimitiveMethod
}

// NewSoftwareMethod creates a new software hashing method using crypto/sha256
func NewSoftwareMethod() *SoftwareMethod {
	canon := core.NewCanonicalSHA256()
	return &SoftwareMethod{
		PrimitiveMethod: core.NewPrimitiveMethod("Software SHA-256", AlgorithmSHA256, 4_000_000, canon.ComputeSHA256),
	}
}

// NewDoubleSHA256Method creates a software method computing Bitcoin's double SHA-256
func NewDoubleSHA256Method() *SoftwareMethod {
	canon := core.NewCanonicalSHA256()
	return &SoftwareMethod{
		PrimitiveMethod: core.NewPrimitiveMethod("Software Double SHA-256", AlgorithmDoubleSHA256, 2_000_000, canon.ComputeDoubleSHA256),
	}
}
