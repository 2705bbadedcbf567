package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("hybrid answer carries citations", func(t *testing.T) {
		ask := &mockAskService{result: &domain.AnswerResult{
			Mode:       domain.ModeHybrid,
			AnswerText: "Tawarruq is permissible subject to conditions [Source: tawarruq.pdf, page 4].",
			Citations: []domain.Citation{
				{Filename: "tawarruq.pdf", PageNumber: 4, URL: "https://www.bnm.gov.my/tawarruq.pdf", SnapshotRef: "/tmp/p4.png"},
				{Filename: "unlisted.pdf", PageNumber: 2, Warnings: []string{"source reference only, link unavailable"}},
			},
			SuggestedFollowups: []string{"What are the conditions?"},
		}}
		server, err := NewServer(&Ports{Ask: ask})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "What is the ruling on Tawarruq?"})
		require.NoError(t, err)

		assert.Equal(t, "What is the ruling on Tawarruq?", ask.question)
		assert.Equal(t, "HYBRID", output.Mode)
		assert.Empty(t, output.Disclaimer)
		require.Len(t, output.Citations, 2)
		assert.Equal(t, "sanad://snapshots/tawarruq.pdf/4", output.Citations[0].SnapshotURI)
		assert.Equal(t, "https://www.bnm.gov.my/tawarruq.pdf", output.Citations[0].URL)
		assert.Empty(t, output.Citations[1].SnapshotURI)
		assert.Equal(t, []string{"source reference only, link unavailable"}, output.Citations[1].Warnings)
		assert.Equal(t, []string{"What are the conditions?"}, output.Followups)
	})

	t.Run("general answer carries disclaimer", func(t *testing.T) {
		ask := &mockAskService{result: &domain.AnswerResult{
			Mode:       domain.ModeGeneral,
			AnswerText: domain.GeneralDisclaimer + "\n\nRiba is...",
			Citations:  []domain.Citation{},
		}}
		server, err := NewServer(&Ports{Ask: ask})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})
		require.NoError(t, err)

		assert.Equal(t, "GENERAL", output.Mode)
		assert.Equal(t, domain.GeneralDisclaimer, output.Disclaimer)
		assert.NotNil(t, output.Citations)
		assert.Empty(t, output.Citations)
		assert.NotNil(t, output.Followups)
	})

	t.Run("returns error on generation failure", func(t *testing.T) {
		ask := &mockAskService{err: domain.ErrGenerationUnavailable}
		server, err := NewServer(&Ports{Ask: ask})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrGenerationUnavailable)
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns evidence", func(t *testing.T) {
		retrieval := &mockRetrievalService{evidence: []domain.EvidenceUnit{
			{Unit: domain.TextUnit{Filename: "murabaha.pdf", PageNumber: 7, Text: "Murabaha is a sale"}, Score: 0.82},
		}}
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Retrieval: retrieval})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "murabaha"})
		require.NoError(t, err)

		assert.Equal(t, 1, output.Count)
		assert.Equal(t, EvidenceOutput{Filename: "murabaha.pdf", Page: 7, Score: 0.82, Text: "Murabaha is a sale"}, output.Evidence[0])
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		retrieval := &mockRetrievalService{err: errors.New("index missing")}
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Retrieval: retrieval})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index missing")
	})

	t.Run("unavailable without retrieval port", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})
		assert.Error(t, err)
	})
}
