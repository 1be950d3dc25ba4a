package driving

import "github.com/custodia-labs/codexai/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: defaults, then config file, then environment.
	Get() (*domain.AppSettings, error)

	// Set validates and stores one configuration key.
	Set(key, value string) error

	// Keys returns every configurable key.
	Keys() []string

	// SetEmbeddingProvider stores provider, model and API key together.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetGenerationProvider stores provider, model and API key together.
	SetGenerationProvider(provider domain.AIProvider, model, apiKey string) error
}
