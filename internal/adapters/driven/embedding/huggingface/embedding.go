// Package huggingface provides an embedding service adapter using the
// Hugging Face inference API feature-extraction pipeline.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sanad/internal/adapters/driven/embedding"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"
	DefaultModel   = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the Hugging Face embedding service.
type Config struct {
	// APIKey is the Hugging Face access token (required).
	APIKey string

	// BaseURL is the inference endpoint root; the model path is appended.
	BaseURL string

	// Model is the sentence-transformers model id.
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// Dimensions is the embedding vector size. Known models are looked up;
	// any other model learns it from its first response.
	Dimensions int
}

// EmbeddingService generates embeddings through the inference API.
type EmbeddingService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions *embedding.Dimensions
}

type featureRequest struct {
	Inputs  []string       `json:"inputs"`
	Options featureOptions `json:"options"`
}

type featureOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// NewEmbeddingService creates a new Hugging Face embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("huggingface: API token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.Model + "/pipeline/feature-extraction",
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: embedding.NewDimensions(cfg.Model, cfg.Dimensions),
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in a single request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := s.post(ctx, featureRequest{Inputs: texts, Options: featureOptions{WaitForModel: true}})
	if err != nil {
		return nil, err
	}

	vectors, err := decodeVectors(body)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("huggingface: got %d embeddings for %d inputs", len(vectors), len(texts))
	}
	s.dimensions.Observe(vectors)
	return vectors, nil
}

func (s *EmbeddingService) post(ctx context.Context, payload featureRequest) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("huggingface error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("huggingface error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// decodeVectors accepts pooled output ([input][dim]) or token output
// ([input][token][dim]), mean-pooling the latter.
func decodeVectors(body []byte) ([][]float32, error) {
	var pooled [][]float64
	if err := json.Unmarshal(body, &pooled); err == nil {
		out := make([][]float32, len(pooled))
		for i, vec := range pooled {
			out[i] = toFloat32(vec)
		}
		return out, nil
	}

	var tokens [][][]float64
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out := make([][]float32, len(tokens))
	for i, seq := range tokens {
		out[i] = meanPool(seq)
	}
	return out, nil
}

func meanPool(seq [][]float64) []float32 {
	if len(seq) == 0 {
		return nil
	}
	sum := make([]float64, len(seq[0]))
	for _, tok := range seq {
		for j := range min(len(sum), len(tok)) {
			sum[j] += tok[j]
		}
	}
	for j := range sum {
		sum[j] /= float64(len(seq))
	}
	return toFloat32(sum)
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// Dimensions returns the embedding vector size, 0 until an unknown model
// has answered once.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions.Get()
}

// ModelName returns the model id.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short sentence, which also wakes a cold model.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("huggingface: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
