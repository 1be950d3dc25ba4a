package driven

// ConfigStore provides access to application configuration stored as
// dotted keys (e.g. "retrieval.top_k").
type ConfigStore interface {
	// Get retrieves a raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns "" if the key is absent or not a string.
	GetString(key string) string

	// GetInt returns 0 if the key is absent or not numeric.
	GetInt(key string) int

	// GetFloat returns 0 if the key is absent or not numeric.
	GetFloat(key string) float64

	// GetBool returns false if the key is absent or not a boolean.
	GetBool(key string) bool

	// GetStringSlice returns nil if the key is absent or not a list.
	GetStringSlice(key string) []string

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Keys returns every stored key in sorted order.
	Keys() []string

	// Save persists the current configuration.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
