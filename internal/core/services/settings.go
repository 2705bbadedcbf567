package services

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyCorpusDir       = "corpus.dir"
	keyCorpusManifest  = "corpus.manifest"
	keyIndexDir        = "index.dir"
	keySnapshotsDir    = "snapshots.dir"
	keySnapshotsDPI    = "snapshots.dpi"
	keyMinChars        = "chunker.min_chars"
	keyTopK            = "retrieval.top_k"
	keyMinSimilarity   = "retrieval.min_similarity"
	keyMaxContextChars = "composer.max_context_chars"
	keyFollowups       = "composer.followups"
	keyRatePerSecond   = "ingest.rate_per_second"
	keyBatchSize       = "ingest.batch_size"
	keyCrawlURLs       = "crawl.urls"
	keyCrawlMaxPages   = "crawl.max_pages"
	keyCrawlRate       = "crawl.rate_per_second"
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyLLMProvider     = "llm.provider"
	keyLLMModel        = "llm.model"
	keyLLMBaseURL      = "llm.base_url"
	keyLLMAPIKey       = "llm.api_key"
	keyLLMTemperature  = "llm.temperature"
	keyLLMMaxTokens    = "llm.max_tokens"
)

type valueKind int

const (
	kindString valueKind = iota
	kindPositiveInt
	kindNonNegativeInt
	kindFloat
	kindUnitFloat
	kindEmbeddingProvider
	kindLLMProvider
	kindURLList
)

type settingKey struct {
	key  string
	kind valueKind
}

// settableKeys lists every key accepted by Set, in display order.
var settableKeys = []settingKey{
	{keyCorpusDir, kindString},
	{keyCorpusManifest, kindString},
	{keyIndexDir, kindString},
	{keySnapshotsDir, kindString},
	{keySnapshotsDPI, kindPositiveInt},
	{keyMinChars, kindPositiveInt},
	{keyTopK, kindPositiveInt},
	{keyMinSimilarity, kindUnitFloat},
	{keyMaxContextChars, kindPositiveInt},
	{keyFollowups, kindNonNegativeInt},
	{keyRatePerSecond, kindFloat},
	{keyBatchSize, kindPositiveInt},
	{keyCrawlURLs, kindURLList},
	{keyCrawlMaxPages, kindPositiveInt},
	{keyCrawlRate, kindFloat},
	{keyEmbedProvider, kindEmbeddingProvider},
	{keyEmbedModel, kindString},
	{keyEmbedBaseURL, kindString},
	{keyEmbedAPIKey, kindString},
	{keyLLMProvider, kindLLMProvider},
	{keyLLMModel, kindString},
	{keyLLMBaseURL, kindString},
	{keyLLMAPIKey, kindString},
	{keyLLMTemperature, kindFloat},
	{keyLLMMaxTokens, kindNonNegativeInt},
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	dataDir     string
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. Relative paths in
// settings resolve against dataDir.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		dataDir:     dataDir,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings. Unset keys take their
// defaults and empty API keys fall back to the provider's environment variable.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Corpus: domain.CorpusSettings{
			Dir:      s.getString(keyCorpusDir, defaults.Corpus.Dir),
			Manifest: s.getString(keyCorpusManifest, defaults.Corpus.Manifest),
		},
		Index: domain.IndexSettings{
			Dir: s.getString(keyIndexDir, defaults.Index.Dir),
		},
		Snapshots: domain.SnapshotSettings{
			Dir: s.getString(keySnapshotsDir, defaults.Snapshots.Dir),
			DPI: s.getInt(keySnapshotsDPI, defaults.Snapshots.DPI),
		},
		Chunker: domain.ChunkerSettings{
			MinChars: s.getInt(keyMinChars, defaults.Chunker.MinChars),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:          s.getInt(keyTopK, defaults.Retrieval.TopK),
			MinSimilarity: s.getFloat(keyMinSimilarity, defaults.Retrieval.MinSimilarity),
		},
		Composer: domain.ComposerSettings{
			MaxContextChars: s.getInt(keyMaxContextChars, defaults.Composer.MaxContextChars),
			Followups:       s.getSetInt(keyFollowups, defaults.Composer.Followups),
		},
		Ingest: domain.IngestSettings{
			RatePerSecond: s.getFloat(keyRatePerSecond, defaults.Ingest.RatePerSecond),
			BatchSize:     s.getInt(keyBatchSize, defaults.Ingest.BatchSize),
		},
		Crawl: domain.CrawlSettings{
			URLs:          s.getList(keyCrawlURLs, defaults.Crawl.URLs),
			MaxPages:      s.getInt(keyCrawlMaxPages, defaults.Crawl.MaxPages),
			RatePerSecond: s.getFloat(keyCrawlRate, defaults.Crawl.RatePerSecond),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getSetInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
	}

	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings. API keys that came from the
// environment are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyCorpusDir, settings.Corpus.Dir},
		{keyCorpusManifest, settings.Corpus.Manifest},
		{keyIndexDir, settings.Index.Dir},
		{keySnapshotsDir, settings.Snapshots.Dir},
		{keySnapshotsDPI, settings.Snapshots.DPI},
		{keyMinChars, settings.Chunker.MinChars},
		{keyTopK, settings.Retrieval.TopK},
		{keyMinSimilarity, settings.Retrieval.MinSimilarity},
		{keyMaxContextChars, settings.Composer.MaxContextChars},
		{keyFollowups, settings.Composer.Followups},
		{keyRatePerSecond, settings.Ingest.RatePerSecond},
		{keyBatchSize, settings.Ingest.BatchSize},
		{keyCrawlURLs, strings.Join(settings.Crawl.URLs, ",")},
		{keyCrawlMaxPages, settings.Crawl.MaxPages},
		{keyCrawlRate, settings.Crawl.RatePerSecond},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if key := settings.Embedding.APIKey; key != "" && key != s.envKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, key); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}
	if key := settings.LLM.APIKey; key != "" && key != s.envKey(settings.LLM.Provider) {
		if err := s.configStore.Set(keyLLMAPIKey, key); err != nil {
			return fmt.Errorf("save %s: %w", keyLLMAPIKey, err)
		}
	}

	return s.configStore.Save()
}

// Keys returns every settable key in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settableKeys))
	for i, k := range settableKeys {
		keys[i] = k.key
	}
	return keys
}

// Set validates and stores a single key.
func (s *SettingsService) Set(key, value string) error {
	idx := slices.IndexFunc(settableKeys, func(k settingKey) bool { return k.key == key })
	if idx < 0 {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	parsed, err := parseValue(settableKeys[idx].kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.configStore.Save()
}

func parseValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindPositiveInt, kindNonNegativeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", value)
		}
		if n < 0 || (kind == kindPositiveInt && n == 0) {
			return nil, fmt.Errorf("out of range: %d", n)
		}
		return n, nil
	case kindFloat, kindUnitFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", value)
		}
		if f < 0 || (kind == kindUnitFloat && f > 1) {
			return nil, fmt.Errorf("out of range: %g", f)
		}
		return f, nil
	case kindEmbeddingProvider:
		p := domain.AIProvider(value)
		if !slices.Contains(domain.AllEmbeddingProviders(), p) {
			return nil, fmt.Errorf("provider %q does not support embeddings", value)
		}
		return value, nil
	case kindLLMProvider:
		p := domain.AIProvider(value)
		if !slices.Contains(domain.AllLLMProviders(), p) {
			return nil, fmt.Errorf("provider %q does not support answer generation", value)
		}
		return value, nil
	case kindURLList:
		urls := splitList(value)
		for _, raw := range urls {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, fmt.Errorf("invalid url %q", raw)
			}
		}
		return strings.Join(urls, ","), nil
	default:
		return value, nil
	}
}

// splitList splits a comma-separated value, dropping empty items.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s (or set %s)", provider, provider.APIKeyEnv())
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if !slices.Contains(domain.AllLLMProviders(), provider) {
		return fmt.Errorf("provider %s does not support answer generation", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if apiKey == "" {
		apiKey = s.envKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s (or set %s)", provider, provider.APIKeyEnv())
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings can serve queries.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider)
	}
	if settings.Retrieval.TopK < 1 {
		return fmt.Errorf("%s must be at least 1", keyTopK)
	}
	if settings.Retrieval.MinSimilarity < 0 || settings.Retrieval.MinSimilarity > 1 {
		return fmt.Errorf("%s must be between 0 and 1", keyMinSimilarity)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// DataDir returns the directory relative settings paths resolve against.
func (s *SettingsService) DataDir() string {
	return s.dataDir
}

// ResolvePath makes path absolute against the data directory and expands a leading ~.
func (s *SettingsService) ResolvePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if filepath.IsAbs(path) || s.dataDir == "" {
		return path
	}
	return filepath.Join(s.dataDir, path)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) envKey(p domain.AIProvider) string {
	if env := p.APIKeyEnv(); env != "" {
		return s.getenv(env)
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getList(key string, defaultVal []string) []string {
	if items := splitList(s.configStore.GetString(key)); len(items) > 0 {
		return items
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

// getSetInt is getInt for keys where zero is a meaningful value.
func (s *SettingsService) getSetInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	if val := s.configStore.GetInt(key); val >= 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
