package graphql

import "time"

// Config holds the LMS API connection settings.
type Config struct {
	Endpoint string
	Timeout  time.Duration
	// RequestIDLength is the length of the nanoid sent as X-Request-ID.
	RequestIDLength int
}

// DefaultConfig returns a Config pointing at a local API.
func DefaultConfig() Config {
	return Config{
		Endpoint:        "http://localhost:4000/graphql",
		Timeout:         15 * time.Second,
		RequestIDLength: 21,
	}
}
