package core

// DigestSize is the width in bytes of every digest produced by a HashMethod
const DigestSize = 32

// HashMethod defines the interface that all digest implementations must follow
type HashMethod interface {
	// Name returns the human-readable name of the hashing method
	Name() string

	// IsAvailable returns true if this hashing method is available on the current system
	IsAvailable() bool

	// Initialize performs any necessary setup for the hashing method
	Initialize() error

	// Shutdown performs cleanup and shuts down the hashing method
	Shutdown() error

	// ComputeHash computes a single digest. It only fails when the method is
	// not initialized or its primitive became unavailable.
	ComputeHash(data []byte) ([DigestSize]byte, error)

	// GetCapabilities returns the capabilities and performance characteristics
	GetCapabilities() *Capabilities
}

// Capabilities describes the capabilities of a hashing method
type Capabilities struct {
	// Name of the hashing method
	Name string `json:"name"`

	// Algorithm identifier (e.g. "sha256", "blake2b-256")
	Algorithm string `json:"algorithm"`

	// Digest width in bytes
	DigestSize int `json:"digest_size"`

	// Expected hash rate (hashes per second), a rough estimate for display
	HashRate uint64 `json:"hash_rate"`

	// Whether this method is recommended for regular play
	ProductionReady bool `json:"production_ready"`

	// Reason for unavailability (if applicable)
	Reason string `json:"reason,omitempty"`
}

// HashResult represents the result of a hash operation with metadata
type HashResult struct {
	// The computed hash
	Hash [DigestSize]byte `json:"hash"`

	// Time taken to compute the hash (microseconds)
	LatencyUs uint64 `json:"latency_us"`

	// Which method was used
	Method string `json:"method"`
}
