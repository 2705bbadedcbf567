package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// mockAskService implements driving.AskService for testing.
type mockAskService struct {
	result   *domain.AnswerResult
	err      error
	question string
	deadline bool
}

func (m *mockAskService) Ask(ctx context.Context, question string) (*domain.AnswerResult, error) {
	m.question = question
	_, m.deadline = ctx.Deadline()
	return m.result, m.err
}

// mockRetrievalService implements driving.RetrievalService for testing.
type mockRetrievalService struct {
	evidence []domain.EvidenceUnit
	err      error
	query    string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string) ([]domain.EvidenceUnit, error) {
	m.query = query
	return m.evidence, m.err
}

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	report *domain.IngestReport
	err    error
	paths  []string
	resets int
	files  []string
}

func (m *mockIngestService) Ingest(_ context.Context, paths []string) (*domain.IngestReport, error) {
	m.paths = paths
	return m.report, m.err
}

func (m *mockIngestService) IngestFile(_ context.Context, path string) domain.DocumentReport {
	m.files = append(m.files, path)
	return domain.DocumentReport{Filename: filepath.Base(path), Units: 2}
}

func (m *mockIngestService) Reset(_ context.Context) error {
	m.resets++
	return nil
}

// mockSnapshotService implements driving.SnapshotService for testing.
type mockSnapshotService struct {
	ref string
	err error
}

func (m *mockSnapshotService) Snapshot(_ context.Context, _ string, _ int) (string, error) {
	return m.ref, m.err
}

// mockCatalogService implements driving.CatalogService for testing.
type mockCatalogService struct {
	sources []domain.SourceRecord
	stats   domain.IndexStats
	err     error
}

func (m *mockCatalogService) Sources() []domain.SourceRecord {
	return m.sources
}

func (m *mockCatalogService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	set         map[string]string
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if key == "unknown.key" {
		return errors.Join(domain.ErrInvalidInput, errors.New(`unknown setting "unknown.key"`))
	}
	if m.set == nil {
		m.set = make(map[string]string)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"corpus.dir", "retrieval.top_k"}
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding = domain.EmbeddingSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM = domain.LLMSettings{Provider: provider, Model: model, APIKey: apiKey}
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) DataDir() string {
	return "/data"
}

func (m *mockSettingsService) ResolvePath(path string) string {
	return filepath.Join("/data", path)
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error {
	return nil
}

func (m *mockSettingsService) ValidateLLMConfig() error {
	return nil
}

// mockCrawlService implements driving.CrawlService for testing.
type mockCrawlService struct {
	report   *domain.CrawlReport
	err      error
	listings []string
	called   bool
}

func (m *mockCrawlService) Crawl(_ context.Context, listings []string) (*domain.CrawlReport, error) {
	m.called = true
	m.listings = listings
	return m.report, m.err
}

// mockWatcher implements Watcher, replaying changes then closing.
type mockWatcher struct {
	root    string
	changes []string
}

func (m *mockWatcher) Watch(_ context.Context) (<-chan string, error) {
	ch := make(chan string, len(m.changes))
	for _, c := range m.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (m *mockWatcher) Root() string {
	return m.root
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	ask       *mockAskService
	retrieval *mockRetrievalService
	ingest    *mockIngestService
	snapshot  *mockSnapshotService
	catalog   *mockCatalogService
	settings  *mockSettingsService
	crawl     *mockCrawlService
	watcher   *mockWatcher
}

// setupTestServices installs mocks for every port and returns them with a
// cleanup func that restores the previous ports and flag values.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ask: &mockAskService{result: &domain.AnswerResult{
			Mode:       domain.ModeHybrid,
			AnswerText: "Tawarruq is permissible under conditions [Source: tawarruq.pdf, page 4].",
			Citations: []domain.Citation{{
				Filename:    "tawarruq.pdf",
				PageNumber:  4,
				URL:         "https://www.bnm.gov.my/tawarruq.pdf",
				SnapshotRef: "/cache/tawarruq.pdf/page-0004.png",
			}},
			SuggestedFollowups: []string{"What are the conditions for Tawarruq?"},
		}},
		retrieval: &mockRetrievalService{},
		ingest:    &mockIngestService{report: &domain.IngestReport{}},
		snapshot:  &mockSnapshotService{ref: "/cache/tawarruq.pdf/page-0004.png"},
		catalog:   &mockCatalogService{},
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
		crawl:     &mockCrawlService{report: &domain.CrawlReport{}},
		watcher:   &mockWatcher{root: "/data/my_pdfs"},
	}

	oldAsk, oldRetrieval, oldIngest := askService, retrievalService, ingestService
	oldSnapshot, oldCatalog, oldSettings := snapshotService, catalogService, settingsService
	oldWatcher, oldFactory, oldCrawl := corpusWatcher, serviceFactory, crawlService

	askService = ts.ask
	retrievalService = ts.retrieval
	ingestService = ts.ingest
	snapshotService = ts.snapshot
	catalogService = ts.catalog
	settingsService = ts.settings
	crawlService = ts.crawl
	corpusWatcher = ts.watcher
	serviceFactory = nil

	return ts, func() {
		askService, retrievalService, ingestService = oldAsk, oldRetrieval, oldIngest
		snapshotService, catalogService, settingsService = oldSnapshot, oldCatalog, oldSettings
		corpusWatcher, serviceFactory, crawlService = oldWatcher, oldFactory, oldCrawl
		resetFlags()
	}
}

// resetFlags restores command flag variables to their defaults.
func resetFlags() {
	askOutput, askTimeout = outputText, 2*time.Minute
	retrieveOutput, sourcesOutput = outputText, outputText
	ingestReset, ingestWatch, ingestDryRun = false, false, false
	verbose, configPath, dataDir = false, "", ""
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
