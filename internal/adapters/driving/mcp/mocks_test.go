package mcp

import (
	"context"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	result   *domain.AnswerResult
	err      error
	question string
}

func (m *mockAskService) Ask(_ context.Context, question string) (*domain.AnswerResult, error) {
	m.question = question
	return m.result, m.err
}

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	evidence []domain.EvidenceUnit
	err      error
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ string) ([]domain.EvidenceUnit, error) {
	return m.evidence, m.err
}

// mockCatalogService is a mock implementation of driving.CatalogService.
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

// mockSnapshotService is a mock implementation of driving.SnapshotService.
type mockSnapshotService struct {
	ref      string
	err      error
	filename string
	page     int
}

func (m *mockSnapshotService) Snapshot(_ context.Context, filename string, page int) (string, error) {
	m.filename, m.page = filename, page
	return m.ref, m.err
}
