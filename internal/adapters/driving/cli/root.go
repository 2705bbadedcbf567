// Package cli implements the sanad command line interface.
//
// Commands reach the core through driving ports held in package-level
// variables. A Factory installed by main builds them after the global
// flags are parsed; tests assign the variables directly.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sanad/internal/core/ports/driving"
	"github.com/custodia-labs/sanad/internal/logger"
)

// version is set at build time via ldflags or SetVersion.
var version = "dev"

// Access selects how the factory opens the index.
type Access int

const (
	// AccessConfig opens only configuration; no index is touched.
	AccessConfig Access = iota
	// AccessRead opens the persisted index read-only for queries.
	AccessRead
	// AccessWrite opens the persisted index for ingestion.
	AccessWrite
	// AccessMemory indexes into a throwaway in-memory store.
	AccessMemory
	// AccessCrawl fills the corpus folder; no index is touched.
	AccessCrawl
)

// Options carries the global flags to the factory.
type Options struct {
	ConfigPath string
	DataDir    string
	Access     Access
}

// Watcher reports changed documents in the corpus folder.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
	Root() string
}

// Services is the set of ports a command may use. Ports the requested
// Access does not need are left nil.
type Services struct {
	Ask       driving.AskService
	Retrieval driving.RetrievalService
	Ingest    driving.IngestService
	Snapshot  driving.SnapshotService
	Catalog   driving.CatalogService
	Settings  driving.SettingsService
	Crawl     driving.CrawlService
	Watcher   Watcher

	// Warnings are non-fatal problems found while wiring, such as an
	// unconfigured answer service.
	Warnings []string

	// Close releases the index handle and provider clients.
	Close func() error
}

// Factory builds the services for one command invocation.
type Factory func(ctx context.Context, opts Options) (*Services, error)

var (
	askService       driving.AskService
	retrievalService driving.RetrievalService
	ingestService    driving.IngestService
	snapshotService  driving.SnapshotService
	catalogService   driving.CatalogService
	settingsService  driving.SettingsService
	crawlService     driving.CrawlService
	corpusWatcher    Watcher

	serviceFactory Factory
	closeServices  func() error
)

var (
	verbose    bool
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "sanad",
	Short: "Evidence-grounded answers over regulatory documents",
	Long: `Sanad answers questions from a folder of regulatory documents.

Answers grounded in the indexed documents cite the filename, page and
publication URL of every page they used. When nothing relevant is found,
a general-knowledge answer is given with a disclaimer and no citations.

Get started:
  sanad settings show          # check providers and paths
  sanad crawl                  # download the published documents
  sanad ingest                 # index the corpus folder
  sanad ask "What is the ruling on Tawarruq?"`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline progress to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.sanad/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory relative paths resolve against (default ~/.sanad)")
}

// SetServiceFactory installs the factory commands use to build services.
func SetServiceFactory(f Factory) {
	serviceFactory = f
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openServices builds the services for cmd. Without a factory the
// package-level ports are used as they are.
func openServices(cmd *cobra.Command, access Access) error {
	if serviceFactory == nil {
		return nil
	}

	svc, err := serviceFactory(commandContext(cmd), Options{
		ConfigPath: configPath,
		DataDir:    dataDir,
		Access:     access,
	})
	if err != nil {
		return err
	}

	askService = svc.Ask
	retrievalService = svc.Retrieval
	ingestService = svc.Ingest
	snapshotService = svc.Snapshot
	catalogService = svc.Catalog
	settingsService = svc.Settings
	crawlService = svc.Crawl
	corpusWatcher = svc.Watcher
	closeServices = svc.Close

	for _, w := range svc.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
	}
	return nil
}

// releaseServices closes whatever openServices built.
func releaseServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// withServices wraps a RunE so services are opened before and closed after it.
func withServices(access Access, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := openServices(cmd, access); err != nil {
			return err
		}
		return errors.Join(run(cmd, args), releaseServices())
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
