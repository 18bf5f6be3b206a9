// Package config defines the process configuration consumed by the shared
// service runtime. Values are resolved from flags, environment variables, and
// an optional config.yaml before they reach this struct; nothing here reads
// the raw sources.
package config

import (
	"errors"
	"fmt"
	"time"
)

// DatastoreConfig selects and parameterizes the document store engine.
type DatastoreConfig struct {
	// Engine is the store engine to use (e.g. 'memory', 'firestore', 'mongodb').
	Engine string

	// ProjectID is the Firestore project, required by the firestore engine.
	ProjectID string

	// URI and Database configure the mongodb engine.
	URI      string
	Database string
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins []string
	CORSAllowedHeaders []string
}

// AuthnConfig selects the authentication method enforced on every request.
type AuthnConfig struct {
	// Method is 'none' or 'preshared'.
	Method string

	// Keys are the accepted preshared API keys for the 'preshared' method.
	Keys []string
}

// LogConfig holds the log output settings. Production deployments should use
// the 'json' format.
type LogConfig struct {
	Format string
	Level  string
}

// RetryConfig parameterizes the per-chunk retry policy of batched store
// queries.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
}

type Config struct {
	Datastore DatastoreConfig
	HTTP      HTTPConfig
	Authn     AuthnConfig
	Log       LogConfig
	Retry     RetryConfig

	// RequestTimeout bounds the time a single request may take, batched
	// store queries and their retries included. Zero disables the bound.
	RequestTimeout time.Duration
}

// DefaultConfig returns the server default configuration.
func DefaultConfig() Config {
	return Config{
		Datastore: DatastoreConfig{
			Engine: "memory",
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: []string{"*"},
			CORSAllowedHeaders: []string{"*"},
		},
		Authn: AuthnConfig{
			Method: "none",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 100 * time.Millisecond,
			Multiplier:      2,
			MaxInterval:     10 * time.Second,
		},
		RequestTimeout: 30 * time.Second,
	}
}

// Verify checks that the configuration is complete enough to start.
func (c Config) Verify() error {
	switch c.Datastore.Engine {
	case "memory":
	case "firestore":
		if c.Datastore.ProjectID == "" {
			return errors.New("'datastore.project-id' must be set for the firestore engine")
		}
	case "mongodb":
		if c.Datastore.URI == "" || c.Datastore.Database == "" {
			return errors.New("'datastore.uri' and 'datastore.database' must be set for the mongodb engine")
		}
	default:
		return fmt.Errorf("unsupported datastore engine: '%s'", c.Datastore.Engine)
	}

	switch c.Authn.Method {
	case "none":
	case "preshared":
		if len(c.Authn.Keys) == 0 {
			return errors.New("'authn.keys' must contain at least one key for the preshared method")
		}
	default:
		return fmt.Errorf("unsupported authn method: '%s'", c.Authn.Method)
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("'retry.max-attempts' must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		return errors.New("'retry.multiplier' must be at least 1")
	}

	return nil
}
