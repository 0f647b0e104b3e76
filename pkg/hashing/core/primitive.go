package core

import (
	"sync"
	"sync/atomic"
)

// Primitive is a stateless one-way digest function
type Primitive func(data []byte) [DigestSize]byte

// PrimitiveMethod adapts a Primitive to the HashMethod lifecycle. The
// primitive only runs between Initialize and Shutdown; outside that window
// ComputeHash reports ErrorHardwareUnavailable.
type PrimitiveMethod struct {
	name        string
	algorithm   string
	hashRate    uint64
	sum         Primitive
	initialized atomic.Bool
	mutex       sync.Mutex
	caps        *Capabilities
}

// NewPrimitiveMethod creates a method named name around sum
func NewPrimitiveMethod(name, algorithm string, hashRate uint64, sum Primitive) *PrimitiveMethod {
	return &PrimitiveMethod{
		name:      name,
		algorithm: algorithm,
		hashRate:  hashRate,
		sum:       sum,
	}
}

// Name returns the human-readable name of the hashing method
func (m *PrimitiveMethod) Name() string {
	return m.name
}

// IsAvailable returns true if this hashing method is available on the current system
func (m *PrimitiveMethod) IsAvailable() bool {
	return m.sum != nil
}

// Initialize performs any necessary setup for the hashing method
func (m *PrimitiveMethod) Initialize() error {
	if m.sum == nil {
		return &HashError{
			Type:    ErrorHardwareUnavailable,
			Message: m.name + ": digest primitive not available",
		}
	}
	m.initialized.Store(true)
	return nil
}

// Shutdown performs cleanup and shuts down the hashing method
func (m *PrimitiveMethod) Shutdown() error {
	m.initialized.Store(false)
	return nil
}

// ComputeHash computes a single digest
func (m *PrimitiveMethod) ComputeHash(data []byte) ([DigestSize]byte, error) {
	if !m.initialized.Load() {
		return [DigestSize]byte{}, &HashError{
			Type:    ErrorHardwareUnavailable,
			Message: m.name + " method not initialized",
			Context: map[string]interface{}{"algorithm": m.algorithm},
		}
	}
	return m.sum(data), nil
}

// GetCapabilities returns the capabilities and performance characteristics
func (m *PrimitiveMethod) GetCapabilities() *Capabilities {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.caps == nil {
		m.caps = &Capabilities{
			Name:            m.name,
			Algorithm:       m.algorithm,
			DigestSize:      DigestSize,
			HashRate:        m.hashRate,
			ProductionReady: m.sum != nil,
		}
		if m.sum == nil {
			m.caps.Reason = "digest primitive not available"
		}
	}

	return m.caps
}
