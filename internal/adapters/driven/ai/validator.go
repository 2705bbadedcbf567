package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded to show the configured model is actually served.
const sampleText = "Shariah compliance of a murabaha contract"

// PinnedFunc reports the fingerprint the index was built with, zero if none.
type PinnedFunc func(ctx context.Context) (domain.EmbeddingFingerprint, error)

// ConfigValidator checks provider settings against the live provider.
// An embedding model is also checked against the index it would query, so
// switching models is caught before `ask` fails with a mismatch.
type ConfigValidator struct {
	timeout time.Duration
	pinned  PinnedFunc
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPinnedFingerprint compares embedding settings against the index.
func WithPinnedFingerprint(fn PinnedFunc) ValidatorOption {
	return func(v *ConfigValidator) {
		v.pinned = fn
	}
}

// WithValidationTimeout bounds each validation.
func WithValidationTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding embeds a sample sentence with settings. The resulting
// model and vector size must match what the index was built with.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	vec, err := svc.Embed(ctx, sampleText)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	if v.pinned == nil {
		return nil
	}

	pinned, err := v.pinned(ctx)
	if err != nil {
		return fmt.Errorf("read index fingerprint: %w", err)
	}
	got := domain.EmbeddingFingerprint{Model: svc.ModelName(), Dimensions: len(vec)}
	if !pinned.IsZero() && pinned != got {
		return fmt.Errorf("%w: index built with %s, %s produces %s. Run `sanad ingest --reset` to rebuild",
			domain.ErrEmbeddingMismatch, pinned, settings.Provider, got)
	}
	return nil
}

// ValidateLLM pings the configured chat provider.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return nil
}
