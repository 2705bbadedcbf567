package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrNotDocument", ErrNotDocument},
		{"ErrManifestFormat", ErrManifestFormat},
		{"ErrDuplicateSource", ErrDuplicateSource},
		{"ErrUnknownSource", ErrUnknownSource},
		{"ErrPageRender", ErrPageRender},
		{"ErrGenerationUnavailable", ErrGenerationUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrEmbeddingMismatch", ErrEmbeddingMismatch},
		{"ErrIndexNotFound", ErrIndexNotFound},
		{"ErrIndexVersion", ErrIndexVersion},
	}

	seen := make(map[string]string)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
			if prev, ok := seen[tt.err.Error()]; ok {
				t.Errorf("%s has the same message as %s", tt.name, prev)
			}
			seen[tt.err.Error()] = tt.name
		})
	}
}

func TestErrors_WithWrapping(t *testing.T) {
	wrapped := fmt.Errorf("load manifest line 4: %w", ErrManifestFormat)
	assert.True(t, errors.Is(wrapped, ErrManifestFormat))
	assert.False(t, errors.Is(wrapped, ErrDuplicateSource))

	double := fmt.Errorf("%w: %w", ErrGenerationUnavailable, errors.New("connection refused"))
	assert.True(t, errors.Is(double, ErrGenerationUnavailable))
	assert.Contains(t, double.Error(), "connection refused")
}

func TestErrors_ErrorMessages(t *testing.T) {
	assert.Equal(t, "unknown source", ErrUnknownSource.Error())
	assert.Equal(t, "page render failed", ErrPageRender.Error())
	assert.Equal(t, "generation service unavailable", ErrGenerationUnavailable.Error())
}
