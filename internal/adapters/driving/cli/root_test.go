package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sanad/internal/logger"
)

// recordingFactory returns a Factory that records its options and hands
// out the mocks in ts.
func recordingFactory(ts *testServices, got *[]Options, closed *int, warnings ...string) Factory {
	return func(_ context.Context, opts Options) (*Services, error) {
		*got = append(*got, opts)
		return &Services{
			Ask:       ts.ask,
			Retrieval: ts.retrieval,
			Ingest:    ts.ingest,
			Snapshot:  ts.snapshot,
			Catalog:   ts.catalog,
			Settings:  ts.settings,
			Crawl:     ts.crawl,
			Watcher:   ts.watcher,
			Warnings:  warnings,
			Close: func() error {
				*closed++
				return nil
			},
		}, nil
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "sanad", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("data-dir"))
}

func TestFactory_AccessPerCommand(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		access Access
	}{
		{"ask opens read-only", []string{"ask", "q"}, AccessRead},
		{"retrieve opens read-only", []string{"retrieve", "q"}, AccessRead},
		{"status opens read-only", []string{"status"}, AccessRead},
		{"ingest opens for writing", []string{"ingest"}, AccessWrite},
		{"dry run uses memory", []string{"ingest", "--dry-run"}, AccessMemory},
		{"settings opens config only", []string{"settings", "keys"}, AccessConfig},
		{"crawl leaves the index alone", []string{"crawl"}, AccessCrawl},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			var got []Options
			closed := 0
			SetServiceFactory(recordingFactory(ts, &got, &closed))

			_, err := execute(tt.args...)

			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, tt.access, got[0].Access)
			assert.Equal(t, 1, closed)
		})
	}
}

func TestFactory_ReceivesGlobalFlags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer logger.SetVerbose(false)

	var got []Options
	closed := 0
	SetServiceFactory(recordingFactory(ts, &got, &closed))

	_, err := execute("--config", "/etc/sanad.yaml", "--data-dir", "/srv/sanad", "-v", "status")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/etc/sanad.yaml", got[0].ConfigPath)
	assert.Equal(t, "/srv/sanad", got[0].DataDir)
	assert.True(t, logger.IsVerbose())
}

func TestFactory_WarningsArePrinted(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	var got []Options
	closed := 0
	SetServiceFactory(recordingFactory(ts, &got, &closed, "LLM provider groq is not configured (set GROQ_API_KEY)"))

	out, err := execute("status")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: LLM provider groq is not configured")
}

func TestFactory_ErrorStopsCommand(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	SetServiceFactory(func(context.Context, Options) (*Services, error) {
		return nil, errors.New("open index: permission denied")
	})

	_, err := execute("ask", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, ts.ask.question)
}

func TestVersionCmd_SkipsFactory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	called := false
	SetServiceFactory(func(context.Context, Options) (*Services, error) {
		called = true
		return nil, errors.New("unexpected")
	})

	_, err := execute("version")

	require.NoError(t, err)
	assert.False(t, called)
}
