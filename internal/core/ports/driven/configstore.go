package driven

import "time"

// ConfigStore provides access to application configuration.
// Keys are dot-separated paths into the configuration tree, e.g. "monitor.interval".
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value, or "" if absent.
	GetString(key string) string

	// GetInt retrieves an integer value, or 0 if absent.
	GetInt(key string) int

	// GetBool retrieves a boolean value, or false if absent.
	GetBool(key string) bool

	// GetDuration retrieves a duration written as a Go duration string ("2s").
	// Returns 0 if the key is absent or unparsable.
	GetDuration(key string) time.Duration

	// GetStringSlice retrieves a string slice, or nil if absent.
	GetStringSlice(key string) []string

	// Set stores a configuration value in memory.
	Set(key string, value any) error

	// Save persists the current configuration.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
