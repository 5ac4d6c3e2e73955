package server

import "time"

// Config holds the HTTP façade's configuration. The façade is a thin
// stand-in for the out-of-scope gRPC service: it exposes the engine's
// key-value operations over HTTP and nothing more.
type Config struct {
	Host    string // Server host address
	Port    int    // Server port
	DataDir string // Engine data directory

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64

	EnableCORS     bool
	AllowedOrigins []string

	EnableAuth bool // Require HTTP basic auth via pkg/auth

	// TLS/SSL configuration
	EnableTLS   bool
	TLSCertFile string
	TLSKeyFile  string
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		DataDir:        "./tidestore-data",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024,
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		EnableAuth:     false,
		EnableTLS:      false,
	}
}
