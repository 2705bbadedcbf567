package driving

import "github.com/custodia-labs/sanad/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single dot-notation key, validating its value.
	Set(key, value string) error

	// Keys returns every settable key in display order.
	Keys() []string

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings can serve queries.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// DataDir returns the directory relative settings paths resolve against.
	DataDir() string

	// ResolvePath makes a settings path absolute against DataDir.
	ResolvePath(path string) string

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
