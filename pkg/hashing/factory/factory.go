package factory

import (
	"fmt"
	"sort"
	"strings"

	"hashquest/pkg/hashing/core"
	"hashquest/pkg/hashing/methods/software"
	"hashquest/pkg/hashing/methods/xcrypto"
)

// HashMethodConfig contains configuration for hash method selection
type HashMethodConfig struct {
	// Preferred method order (highest priority first)
	PreferredOrder []string `json:"preferred_order"`

	// Allow falling back to plain SHA-256 when no preferred method is available
	EnableFallback bool `json:"enable_fallback"`
}

// DefaultHashMethodConfig returns a sensible default configuration
func DefaultHashMethodConfig() *HashMethodConfig {
	return &HashMethodConfig{
		PreferredOrder: []string{
			software.AlgorithmSHA256,
			software.AlgorithmDoubleSHA256,
			xcrypto.AlgorithmBlake2b,
			xcrypto.AlgorithmSHA3,
		},
		EnableFallback: true,
	}
}

// ConfigFor returns a configuration that prefers the named algorithm
func ConfigFor(algorithm string) *HashMethodConfig {
	config := DefaultHashMethodConfig()
	order := []string{algorithm}
	for _, name := range config.PreferredOrder {
		if name != algorithm {
			order = append(order, name)
		}
	}
	config.PreferredOrder = order
	return config
}

// HashMethodFactory creates and manages hash method instances
type HashMethodFactory struct {
	config  *HashMethodConfig
	methods map[string]core.HashMethod
	best    core.HashMethod
}

// NewHashMethodFactory creates a new factory with the given configuration
func NewHashMethodFactory(config *HashMethodConfig) *HashMethodFactory {
	if config == nil {
		config = DefaultHashMethodConfig()
	}

	factory := &HashMethodFactory{
		config:  config,
		methods: make(map[string]core.HashMethod),
	}

	factory.registerMethods()
	factory.selectBestMethod()

	return factory
}

// registerMethods creates every built-in method
func (f *HashMethodFactory) registerMethods() {
	f.methods[software.AlgorithmSHA256] = software.NewSoftwareMethod()
	f.methods[software.AlgorithmDoubleSHA256] = software.NewDoubleSHA256Method()
	f.methods[xcrypto.AlgorithmSHA3] = xcrypto.NewSHA3Method()
	f.methods[xcrypto.AlgorithmBlake2b] = xcrypto.NewBlake2bMethod()
}

// selectBestMethod chooses the best available method based on configuration
func (f *HashMethodFactory) selectBestMethod() {
	for _, methodName := range f.config.PreferredOrder {
		if method, exists := f.methods[methodName]; exists {
			if method.IsAvailable() {
				f.best = method
				return
			}
		}
	}

	// If no preferred method is available, fall back to software
	if f.config.EnableFallback {
		if softwareMethod, exists := f.methods[software.AlgorithmSHA256]; exists {
			f.best = softwareMethod
		}
	}
}

// GetBestMethod returns the currently selected best hashing method
func (f *HashMethodFactory) GetBestMethod() core.HashMethod {
	return f.best
}

// GetMethod returns a specific hashing method by name
func (f *HashMethodFactory) GetMethod(name string) core.HashMethod {
	if method, exists := f.methods[name]; exists {
		return method
	}
	return nil
}

// GetAvailableMethods returns all available hashing methods
func (f *HashMethodFactory) GetAvailableMethods() map[string]core.HashMethod {
	result := make(map[string]core.HashMethod)
	for name, method := range f.methods {
		if method.IsAvailable() {
			result[name] = method
		}
	}
	return result
}

// Open selects the named method, or the best one when name is empty, and
// initializes it. An unknown name is a fatal configuration error.
func (f *HashMethodFactory) Open(name string) (core.HashMethod, error) {
	method := f.best
	if name != "" {
		method = f.GetMethod(name)
		if method == nil {
			return nil, fmt.Errorf("unknown hash method %q (available: %s)", name, strings.Join(f.names(), ", "))
		}
	}
	if method == nil {
		return nil, fmt.Errorf("no method selected")
	}
	if err := method.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", method.Name(), err)
	}
	return method, nil
}

// ShutdownAll shuts down all methods
func (f *HashMethodFactory) ShutdownAll() error {
	var errors []string

	for name, method := range f.methods {
		if err := method.Shutdown(); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (f *HashMethodFactory) names() []string {
	names := make([]string, 0, len(f.methods))
	for name := range f.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetDetectionReport returns a report of registered methods and their status
func (f *HashMethodFactory) GetDetectionReport() *DetectionReport {
	report := &DetectionReport{
		Methods:        make([]*MethodStatus, 0, len(f.methods)),
		BestMethod:     "none",
		TotalMethods:   len(f.methods),
		AvailableCount: 0,
	}

	for _, name := range f.names() {
		method := f.methods[name]
		available := method.IsAvailable()

		report.Methods = append(report.Methods, &MethodStatus{
			Name:         name,
			Available:    available,
			Priority:     f.getPriority(name),
			Capabilities: method.GetCapabilities(),
			Description:  f.getMethodDescription(name),
		})

		if available {
			report.AvailableCount++
		}
	}
	SortMethodsByPriority(report.Methods)

	if f.best != nil {
		report.BestMethod = f.best.Name()
	}

	return report
}

// getPriority returns the priority index of a method
func (f *HashMethodFactory) getPriority(name string) int {
	for i, preferred := range f.config.PreferredOrder {
		if name == preferred {
			return i
		}
	}
	return 999 // Low priority for methods not in preferred list
}

// getMethodDescription returns a human-readable description for a method
func (f *HashMethodFactory) getMethodDescription(name string) string {
	descriptions := map[string]string{
		software.AlgorithmSHA256:       "Pure Go SHA-256 using crypto/sha256",
		software.AlgorithmDoubleSHA256: "Bitcoin-style double SHA-256",
		xcrypto.AlgorithmSHA3:          "SHA3-256 from golang.org/x/crypto",
		xcrypto.AlgorithmBlake2b:       "BLAKE2b-256 from golang.org/x/crypto",
	}

	if desc, exists := descriptions[name]; exists {
		return desc
	}
	return "Unknown hashing method"
}

// DetectionReport contains the status of every registered method
type DetectionReport struct {
	Methods        []*MethodStatus `json:"methods"`
	BestMethod     string          `json:"best_method"`
	TotalMethods   int             `json:"total_methods"`
	AvailableCount int             `json:"available_count"`
}

// MethodStatus describes the status of a single hashing method
type MethodStatus struct {
	Name         string             `json:"name"`
	Available    bool               `json:"available"`
	Priority     int                `json:"priority"`
	Capabilities *core.Capabilities `json:"capabilities"`
	Description  string             `json:"description"`
}

// SortMethodsByPriority sorts methods by priority (helper for reports)
func SortMethodsByPriority(methods []*MethodStatus) {
	sort.SliceStable(methods, func(i, j int) bool {
		return methods[i].Priority < methods[j].Priority
	})
}
