package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService maps texts to vectors by keyword. A text containing a
// key of vectors gets that vector; anything else gets fallback.
type mockEmbeddingService struct {
	vectors  map[string][]float32
	fallback []float32
	model    string
	dims     int
	embedErr error
	batches  atomic.Int32
}

func newMockEmbedder(dims int) *mockEmbeddingService {
	fallback := make([]float32, dims)
	fallback[dims-1] = 1
	return &mockEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: fallback,
		model:    "mock-embed",
		dims:     dims,
	}
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	for key, vec := range m.vectors {
		if strings.Contains(strings.ToLower(text), key) {
			return vec
		}
	}
	return m.fallback
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int             { return m.dims }
func (m *mockEmbeddingService) ModelName() string           { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                { return nil }

// mockLLMService answers from a function and records every call.
type mockLLMService struct {
	mu      sync.Mutex
	calls   [][]driven.ChatMessage
	answer  func(call int, messages []driven.ChatMessage) (string, error)
	opts    []driven.ChatOptions
	latency time.Duration
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return m.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (m *mockLLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, messages)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.answer == nil {
		return "answer", nil
	}
	return m.answer(call, messages)
}

func (m *mockLLMService) Calls() [][]driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]driven.ChatMessage(nil), m.calls...)
}

func (m *mockLLMService) ModelName() string           { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                { return nil }

// mockSources implements driven.SourceResolver over a map.
type mockSources map[string]string

func (m mockSources) Resolve(filename string) (string, error) {
	if u, ok := m[domain.NormaliseFilename(filename)]; ok {
		return u, nil
	}
	return "", domain.ErrUnknownSource
}

func (m mockSources) Records() []domain.SourceRecord {
	out := make([]domain.SourceRecord, 0, len(m))
	for f, u := range m {
		out = append(out, domain.SourceRecord{Filename: f, URL: u})
	}
	return out
}

// mockSnapshots implements driven.SnapshotIndex. Pages listed in fail
// return ErrPageRender; delays let tests reorder completion.
type mockSnapshots struct {
	fail   map[domain.UnitKey]bool
	delays map[domain.UnitKey]time.Duration
	calls  atomic.Int32
}

func (m *mockSnapshots) Get(ctx context.Context, filename string, page int) (string, error) {
	m.calls.Add(1)
	key := domain.UnitKey{Filename: filename, PageNumber: page}
	if d := m.delays[key]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.fail[key] {
		return "", domain.ErrPageRender
	}
	return "/snapshots/" + key.String() + ".png", nil
}

// mockChunker returns canned documents keyed by path.
type mockChunker struct {
	docs map[string]*domain.ChunkedDocument
	err  error
}

func (m *mockChunker) Process(_ context.Context, path string) (*domain.ChunkedDocument, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[path]
	if !ok {
		return nil, errors.New("no such document")
	}
	return doc, nil
}

// mockPromptStore serves prompts from a map.
type mockPromptStore map[string]string

func (m mockPromptStore) Load(name string) (string, error) {
	if p, ok := m[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (m mockPromptStore) Reload() {}

// mockCrawler serves canned listings and records fetches. Files named in
// existing are reported as already present.
type mockCrawler struct {
	listings    map[string][]domain.SourceRecord
	pages       map[string]int
	discoverErr map[string]error
	fetchErr    map[string]error
	existing    map[string]bool
	fetched     []string
}

func (m *mockCrawler) Discover(ctx context.Context, listing string) ([]domain.SourceRecord, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return m.listings[listing], m.pages[listing], m.discoverErr[listing]
}

func (m *mockCrawler) Fetch(_ context.Context, rec domain.SourceRecord) (bool, error) {
	if err := m.fetchErr[rec.Filename]; err != nil {
		return false, err
	}
	if m.existing[rec.Filename] {
		return false, nil
	}
	m.fetched = append(m.fetched, rec.Filename)
	return true, nil
}

// mockRecorder implements driven.SourceRecorder, counting every record as new.
type mockRecorder struct {
	recorded []domain.SourceRecord
	err      error
}

func (m *mockRecorder) Record(records []domain.SourceRecord) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.recorded = append(m.recorded, records...)
	return len(records), nil
}

// mockValidator records validation calls.
type mockValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return m.embedErr }
func (m *mockValidator) ValidateLLM(_ *domain.LLMSettings) error             { return m.llmErr }

func textUnit(file string, page int, text string) domain.TextUnit {
	return domain.TextUnit{
		ID:         domain.UnitKey{Filename: file, PageNumber: page}.String(),
		Filename:   file,
		PageNumber: page,
		Text:       text,
	}
}

func evidence(file string, page int, score float64, text string) domain.EvidenceUnit {
	return domain.EvidenceUnit{Unit: textUnit(file, page, text), Score: score}
}
