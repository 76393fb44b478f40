package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Flow constraints
	MaxNodesPerFlow int
	MaxEdgesPerFlow int

	// Message constraints
	MaxMessageLength int

	// Write scheduling
	QuiescenceWindow time.Duration

	// Validation settings
	RequireBuildChain bool
	AllowSelfConnections bool

	// Feature flags
	EnableOptimisticSend bool
	EnableRealtimeSync   bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Flow constraints
		MaxNodesPerFlow: 500,
		MaxEdgesPerFlow: 2000,

		// Message constraints
		MaxMessageLength: 32768,

		// Write scheduling
		QuiescenceWindow: 500 * time.Millisecond,

		// Validation settings
		RequireBuildChain:    true,
		AllowSelfConnections: false,

		// Feature flags
		EnableOptimisticSend: true,
		EnableRealtimeSync:   true,
	}
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxNodesPerFlow = 10000
	config.MaxEdgesPerFlow = 50000
	config.AllowSelfConnections = true

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.QuiescenceWindow <= 0 {
		c.QuiescenceWindow = 500 * time.Millisecond
	}
	return nil
}
