package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Sync service endpoints
	APIBaseURL  string
	RealtimeURL string

	// Supabase configuration
	SupabaseURL     string
	SupabaseAnonKey string

	// Credentials handed over by the host application
	AccessToken  string
	RefreshToken string

	// Write scheduling
	QuiescenceWindow time.Duration

	// Realtime channel tuning
	HeartbeatInterval time.Duration
	ReconnectBackoff  time.Duration
	MaxReconnectTries int

	// HTTP client tuning
	RequestTimeout   time.Duration
	BreakerThreshold int

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Local HTTP surface rate limiting
	RateLimitPerMinute       int
	RateLimitCleanupInterval time.Duration
	RateLimitIdleTTL         time.Duration

	// Feature flags
	EnableMetrics  bool
	EnableRealtime bool
	EnableCORS     bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8000"),
		RealtimeURL: getEnv("REALTIME_URL", ""),

		SupabaseURL:     getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", ""),

		AccessToken:  getEnv("ACCESS_TOKEN", ""),
		RefreshToken: getEnv("REFRESH_TOKEN", ""),

		QuiescenceWindow: getEnvDuration("QUIESCENCE_WINDOW", 500*time.Millisecond),

		HeartbeatInterval: getEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		ReconnectBackoff:  getEnvDuration("RECONNECT_BACKOFF", 2*time.Second),
		MaxReconnectTries: getEnvInt("MAX_RECONNECT_TRIES", 10),

		RequestTimeout:   getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		BreakerThreshold: getEnvInt("BREAKER_THRESHOLD", 5),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "flowsync"),

		RateLimitPerMinute:       getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		RateLimitCleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		RateLimitIdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableRealtime: getEnvBool("ENABLE_REALTIME", true),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.APIBaseURL == "" {
			return fmt.Errorf("API_BASE_URL is required in production")
		}
		if c.EnableRealtime && c.RealtimeURL == "" && c.SupabaseURL == "" {
			return fmt.Errorf("REALTIME_URL or SUPABASE_URL is required when realtime sync is enabled")
		}
	}
	if c.QuiescenceWindow <= 0 {
		return fmt.Errorf("QUIESCENCE_WINDOW must be positive")
	}

	return nil
}

// RealtimeEndpoint returns the websocket endpoint for the push channel.
// When REALTIME_URL is not set explicitly it is derived from the
// Supabase project URL.
func (c *Config) RealtimeEndpoint() string {
	if c.RealtimeURL != "" {
		return c.RealtimeURL
	}
	if c.SupabaseURL == "" {
		return ""
	}
	return "wss://" + trimScheme(c.SupabaseURL) + "/realtime/v1/websocket"
}

func trimScheme(url string) string {
	for _, prefix := range []string{"https://", "http://", "wss://", "ws://"} {
		if len(url) > len(prefix) && url[:len(prefix)] == prefix {
			return url[len(prefix):]
		}
	}
	return url
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
