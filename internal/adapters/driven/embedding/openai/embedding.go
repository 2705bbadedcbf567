// Package openai embeds page text through the OpenAI embeddings endpoint or
// any server that speaks the same protocol.
package openai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sanad/internal/adapters/driven/embedding"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config configures the adapter. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions asks a text-embedding-3 model for shortened vectors. For
	// other models it only declares the expected size.
	Dimensions int
}

// EmbeddingService is the OpenAI embedding adapter.
type EmbeddingService struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions *embedding.Dimensions

	// shorten reports whether the request carries the dimensions field.
	shorten bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingItem struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Data  []embeddingItem `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewEmbeddingService returns an adapter for cfg.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	model := cmp.Or(cfg.Model, DefaultModel)
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &EmbeddingService{
		http:       &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: embedding.NewDimensions(model, cfg.Dimensions),
		shorten:    strings.HasPrefix(model, "text-embedding-3-"),
	}, nil
}

// Embed returns the vector of one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The endpoint may answer out of
// order, so each vector is placed by its index and every input must be covered.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		payload.Dimensions = s.dimensions.Get()
	}

	var out embeddingResponse
	status, raw, err := s.call(ctx, http.MethodPost, "/embeddings", payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openai: decode response (status %d): %w", status, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("openai error (status %d): %s", status, out.Error.Message)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("openai error (status %d): %s", status, string(raw))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		vectors[item.Index] = vec
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}

	s.dimensions.Observe(vectors)
	return vectors, nil
}

// call sends body (if any) to path and returns the status and raw response.
func (s *EmbeddingService) call(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("openai: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("openai: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

// Dimensions returns the vector size, 0 until an unlisted model has answered.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions.Get()
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	status, raw, err := s.call(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("openai: API returned status %d: %s", status, string(raw))
	}
	return nil
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
