package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/sanad/internal/adapters/driven/ai"
	"github.com/custodia-labs/sanad/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sanad/internal/adapters/driven/manifest"
	"github.com/custodia-labs/sanad/internal/adapters/driven/snapshot"
	"github.com/custodia-labs/sanad/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sanad/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sanad/internal/adapters/driving/cli"
	"github.com/custodia-labs/sanad/internal/connectors/filesystem"
	"github.com/custodia-labs/sanad/internal/connectors/web"
	"github.com/custodia-labs/sanad/internal/core/domain"
	"github.com/custodia-labs/sanad/internal/core/ports/driven"
	"github.com/custodia-labs/sanad/internal/core/services"
	"github.com/custodia-labs/sanad/internal/logger"
	"github.com/custodia-labs/sanad/internal/normalisers"
	"github.com/custodia-labs/sanad/internal/postprocessors/chunker"
)

// NewServices builds the services a command needs for opts.Access.
func NewServices(_ context.Context, opts cli.Options) (*cli.Services, error) {
	dataDir := opts.DataDir
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locating data directory: %w", err)
		}
		dataDir = dir
	}
	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}

	var configStore *file.ConfigStore
	if opts.ConfigPath != "" {
		configStore, err = file.OpenConfigFile(opts.ConfigPath)
	} else {
		configStore, err = file.NewConfigStore(dataDir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	var settingsSvc *services.SettingsService
	validator := ai.NewConfigValidator(ai.WithPinnedFingerprint(func(ctx context.Context) (domain.EmbeddingFingerprint, error) {
		settings, err := settingsSvc.Get()
		if err != nil {
			return domain.EmbeddingFingerprint{}, err
		}
		return pinnedFingerprint(ctx, settingsSvc.ResolvePath(settings.Index.Dir))
	}))
	settingsSvc = services.NewSettingsService(configStore, validator, dataDir)
	svc := &cli.Services{
		Settings: settingsSvc,
		Close:    func() error { return nil },
	}
	if opts.Access == cli.AccessConfig {
		return svc, nil
	}

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	logger.Debug("Data directory: %s", dataDir)

	registry := normalisers.DefaultRegistry(settings.Snapshots.DPI)
	corpusDir := settingsSvc.ResolvePath(settings.Corpus.Dir)
	manifestPath := settingsSvc.ResolvePath(settings.Corpus.Manifest)
	if opts.Access == cli.AccessCrawl {
		crawler := web.New(corpusDir,
			web.WithMaxPages(settings.Crawl.MaxPages),
			web.WithRate(settings.Crawl.RatePerSecond),
		)
		svc.Crawl = services.NewCrawlService(crawler, manifest.NewRecorder(manifestPath), settings.Crawl.URLs)
		return svc, nil
	}

	corpus := filesystem.New(corpusDir, registry.Supports)
	svc.Watcher = corpus

	var sources driven.SourceResolver
	m, err := manifest.Load(manifestPath)
	switch {
	case err == nil:
		sources = m
		logger.Debug("Manifest: %d sources from %s", m.Len(), m.Path())
	case opts.Access == cli.AccessRead:
		// Queries still work; citations degrade to "link unavailable".
		svc.Warnings = append(svc.Warnings, err.Error())
	default:
		return nil, err
	}

	snapshots := snapshot.New(corpusDir, settingsSvc.ResolvePath(settings.Snapshots.Dir), registry)
	svc.Snapshot = services.NewSnapshotService(snapshots)

	// Query paths don't need the answer service to ping.
	aiResult := ai.Initialise(settings, false)
	svc.Warnings = append(svc.Warnings, aiResult.Warnings...)

	store, closeStore, err := openStore(opts.Access, settingsSvc.ResolvePath(settings.Index.Dir))
	if err != nil {
		aiResult.Close()
		if opts.Access != cli.AccessRead || !errors.Is(err, domain.ErrIndexNotFound) {
			return nil, err
		}
		svc.Catalog = services.NewCatalogService(sources, nil)
		svc.Ask = missingIndex{err: err}
		svc.Retrieval = missingIndex{err: err}
		return svc, nil
	}

	index := services.NewEmbeddingIndex(store, aiResult.EmbeddingService,
		services.WithBatchSize(settings.Ingest.BatchSize),
		services.WithRateLimiter(services.NewRateLimiter(settings.Ingest.RatePerSecond, 1)),
	)
	retriever := services.NewRetriever(index, aiResult.EmbeddingService, settings.Retrieval)

	composer := services.NewAnswerComposer(
		retriever,
		aiResult.LLMService,
		services.NewCitationResolver(sources, snapshots),
		settings.Composer,
		driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
	)
	prompts, err := file.NewPromptStore(filepath.Join(dataDir, "prompts"), services.DefaultPrompts())
	if err != nil {
		logger.Warn("Using built-in prompts: %v", err)
	} else {
		composer.SetPromptStore(prompts)
	}

	svc.Ask = composer
	svc.Retrieval = retriever
	svc.Catalog = services.NewCatalogService(sources, index)
	svc.Ingest = services.NewIngestService(sources,
		chunker.New(registry, chunker.WithMinChars(settings.Chunker.MinChars)),
		index, corpus)
	svc.Close = func() error {
		aiResult.Close()
		return closeStore()
	}
	return svc, nil
}

// openStore opens the unit store for access.
func openStore(access cli.Access, indexDir string) (driven.UnitStore, func() error, error) {
	switch access {
	case cli.AccessMemory:
		s := memory.NewUnitStore()
		return s, s.Close, nil
	case cli.AccessWrite:
		s, err := sqlite.NewStore(indexDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening index: %w", err)
		}
		return s, s.Close, nil
	default:
		s, err := sqlite.OpenReadOnly(indexDir)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// pinnedFingerprint reads the embedding identity of the index in indexDir.
// A missing index has nothing pinned.
func pinnedFingerprint(ctx context.Context, indexDir string) (domain.EmbeddingFingerprint, error) {
	store, err := sqlite.OpenReadOnly(indexDir)
	if errors.Is(err, domain.ErrIndexNotFound) {
		return domain.EmbeddingFingerprint{}, nil
	}
	if err != nil {
		return domain.EmbeddingFingerprint{}, err
	}
	defer store.Close()
	return store.Fingerprint(ctx)
}

// missingIndex answers every query with the error that kept the index from opening.
type missingIndex struct {
	err error
}

func (m missingIndex) Ask(context.Context, string) (*domain.AnswerResult, error) {
	return nil, m.err
}

func (m missingIndex) Retrieve(context.Context, string) ([]domain.EvidenceUnit, error) {
	return nil, m.err
}
