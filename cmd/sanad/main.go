// Command sanad answers questions over a folder of regulatory documents,
// citing the filename, page and publication URL of every page it used.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sanad/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is fine; keys may come from the environment or config.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.SetServiceFactory(NewServices)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
