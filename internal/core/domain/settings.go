package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGroq is Groq's OpenAI-compatible cloud API.
	AIProviderGroq AIProvider = "groq"

	// AIProviderHuggingFace is the Hugging Face inference API.
	AIProviderHuggingFace AIProvider = "huggingface"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderGroq, AIProviderHuggingFace:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGroq || p == AIProviderHuggingFace
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderHuggingFace:
		return "Hugging Face (cloud)"
	default:
		return unknownDescription
	}
}

// APIKeyEnv returns the environment variable consulted when no key is configured.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderGroq:
		return "GROQ_API_KEY"
	case AIProviderHuggingFace:
		return "HF_TOKEN"
	default:
		return ""
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderGroq {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds answer-generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key for cloud providers.
	APIKey string

	// Temperature is the sampling temperature for answers.
	Temperature float64

	// MaxTokens bounds the answer length. Zero leaves it to the provider.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderHuggingFace {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// CorpusSettings locates the documents and their manifest.
type CorpusSettings struct {
	// Dir is the folder holding the page-oriented documents.
	Dir string

	// Manifest is the path of the filename,url CSV.
	Manifest string
}

// IndexSettings locates the persisted embedding index.
type IndexSettings struct {
	// Dir is the directory holding index.db.
	Dir string
}

// SnapshotSettings configures page image rendering.
type SnapshotSettings struct {
	// Dir is the page image cache directory.
	Dir string

	// DPI is the PDF render resolution.
	DPI int
}

// ChunkerSettings configures page chunking.
type ChunkerSettings struct {
	// MinChars is the minimum normalised text length for a page to be indexed.
	MinChars int
}

// RetrievalSettings holds the retrieval policy.
type RetrievalSettings struct {
	// TopK is the number of nearest neighbours requested from the index.
	TopK int

	// MinSimilarity excludes evidence scoring below it.
	MinSimilarity float64
}

// ComposerSettings holds the answer composition policy.
type ComposerSettings struct {
	// MaxContextChars bounds the evidence context sent with a HYBRID request.
	MaxContextChars int

	// Followups is the maximum number of suggested follow-up questions.
	Followups int
}

// IngestSettings controls the ingestion pipeline.
type IngestSettings struct {
	// RatePerSecond limits embedding requests. Zero means unlimited.
	RatePerSecond float64

	// BatchSize is the number of units embedded per request.
	BatchSize int
}

// CrawlSettings controls how documents are fetched from the publisher.
type CrawlSettings struct {
	// URLs are the listing pages walked when none are given.
	URLs []string

	// MaxPages bounds how many pages of one listing are followed.
	MaxPages int

	// RatePerSecond limits requests to the publisher. Zero means unlimited.
	RatePerSecond float64
}

// AppSettings holds all application settings.
type AppSettings struct {
	Corpus    CorpusSettings
	Index     IndexSettings
	Snapshots SnapshotSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Composer  ComposerSettings
	Ingest    IngestSettings
	Crawl     CrawlSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds answer-generation provider settings.
	LLM LLMSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Directory fields are relative and resolved against the data dir by the settings service.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Corpus: CorpusSettings{
			Dir:      "my_pdfs",
			Manifest: "sources.csv",
		},
		Index:     IndexSettings{Dir: "index"},
		Snapshots: SnapshotSettings{Dir: "snapshots", DPI: 144},
		Chunker:   ChunkerSettings{MinChars: 20},
		Retrieval: RetrievalSettings{
			TopK:          2,
			MinSimilarity: 0.3,
		},
		Composer: ComposerSettings{
			MaxContextChars: 6000,
			Followups:       3,
		},
		Ingest: IngestSettings{
			RatePerSecond: 0,
			BatchSize:     16,
		},
		Crawl: CrawlSettings{
			URLs:          DefaultCrawlTargets(),
			MaxPages:      20,
			RatePerSecond: 1,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    DefaultEmbeddingModels()[AIProviderOllama],
		},
		LLM: LLMSettings{
			Provider:    AIProviderGroq,
			Model:       DefaultLLMModels()[AIProviderGroq],
			Temperature: 0,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderHuggingFace,
	}
}

// AllLLMProviders returns providers that support answer generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderGroq,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:      "all-minilm",
		AIProviderOpenAI:      "text-embedding-3-small",
		AIProviderHuggingFace: "sentence-transformers/all-MiniLM-L6-v2",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
		AIProviderGroq:   "llama-3.3-70b-versatile",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Hugging Face models
		"sentence-transformers/all-MiniLM-L6-v2":  384,
		"sentence-transformers/all-mpnet-base-v2": 768,
	}
}
